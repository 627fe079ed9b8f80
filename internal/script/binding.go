package script

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

type bindingKind int

const (
	kindUndefined bindingKind = iota
	kindValue
	kindFunc
	kindNamespace
)

// Binding is anything a name can refer to while a program runs: a data
// value, a host function, or a namespace of further bindings. The zero
// Binding is `undefined`.
type Binding struct {
	kind bindingKind
	val  cty.Value
	fn   function.Function
	ns   Namespace
}

// Null is the value of the `null` keyword. Its type is fixed so that it
// marshals as a plain JSON null.
var Null = cty.NullVal(cty.EmptyObject)

// Namespace groups bindings under one name, as in `console.log`.
type Namespace map[string]Binding

// Bindings maps the free names of a program to what they refer to.
type Bindings map[string]Binding

// ValueOf binds a data value. A cty.NilVal is `undefined`.
func ValueOf(v cty.Value) Binding {
	if v == cty.NilVal {
		return Binding{}
	}
	return Binding{kind: kindValue, val: v}
}

// FuncOf binds a host function.
func FuncOf(f function.Function) Binding {
	return Binding{kind: kindFunc, fn: f}
}

// NamespaceOf binds a namespace.
func NamespaceOf(ns Namespace) Binding {
	return Binding{kind: kindNamespace, ns: ns}
}

// Defined reports whether b is anything other than `undefined`.
func (b Binding) Defined() bool { return b.kind != kindUndefined }

// Value returns the data value, or cty.NilVal when b is not a value.
func (b Binding) Value() cty.Value {
	if b.kind != kindValue {
		return cty.NilVal
	}
	return b.val
}

// Func returns the host function when b is one.
func (b Binding) Func() (function.Function, bool) {
	return b.fn, b.kind == kindFunc
}

// Namespace returns the namespace when b is one.
func (b Binding) Namespace() (Namespace, bool) {
	return b.ns, b.kind == kindNamespace
}

// With returns a copy of bs with extra layered on top.
func (bs Bindings) With(extra Bindings) Bindings {
	out := make(Bindings, len(bs)+len(extra))
	for name, b := range bs {
		out[name] = b
	}
	for name, b := range extra {
		out[name] = b
	}
	return out
}
