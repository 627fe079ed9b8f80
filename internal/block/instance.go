package block

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Instance is one block placed in the editor workspace.
type Instance struct {
	ID     string
	Type   string
	Fields map[string]cty.Value
	Inputs map[string]*Instance

	// Next is the statement stacked directly below this one.
	Next *Instance
}

// Field returns the value typed into a field, if any.
func (b *Instance) Field(name string) (cty.Value, bool) {
	if b == nil || b.Fields == nil {
		return cty.NilVal, false
	}
	v, ok := b.Fields[name]
	if !ok || v == cty.NilVal || v.IsNull() {
		return cty.NilVal, false
	}
	return v, true
}

// Input returns the block plugged into the named slot, or nil.
func (b *Instance) Input(name string) *Instance {
	if b == nil || b.Inputs == nil {
		return nil
	}
	return b.Inputs[name]
}

// InputNames returns the connected slot names in sorted order.
func (b *Instance) InputNames() []string {
	names := make([]string, 0, len(b.Inputs))
	for name, child := range b.Inputs {
		if child != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Walk visits b, its input children and its next chain depth first. The
// walk stops early when fn returns false.
func (b *Instance) Walk(fn func(*Instance) bool) bool {
	for cur := b; cur != nil; cur = cur.Next {
		if !fn(cur) {
			return false
		}
		for _, name := range cur.InputNames() {
			if !cur.Inputs[name].Walk(fn) {
				return false
			}
		}
	}
	return true
}
