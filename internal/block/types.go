package block

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// OutputKind says what a placed block produces.
type OutputKind int

const (
	// OutputStatement blocks stack vertically and emit statement text.
	OutputStatement OutputKind = iota
	// OutputValue blocks plug into value slots and emit an expression.
	OutputValue
)

func (k OutputKind) String() string {
	if k == OutputValue {
		return "value"
	}
	return "statement"
}

// ParseOutputKind converts the manifest keyword into an OutputKind.
func ParseOutputKind(s string) (OutputKind, error) {
	switch strings.ToLower(s) {
	case "value":
		return OutputValue, nil
	case "statement", "":
		return OutputStatement, nil
	default:
		return OutputStatement, fmt.Errorf("unknown output kind %q: must be 'value' or 'statement'", s)
	}
}

// SlotKind says what may be connected to an input slot.
type SlotKind int

const (
	SlotValue SlotKind = iota
	SlotStatement
)

func (k SlotKind) String() string {
	if k == SlotStatement {
		return "statement"
	}
	return "value"
}

// ParseSlotKind converts the manifest keyword into a SlotKind.
func ParseSlotKind(s string) (SlotKind, error) {
	switch strings.ToLower(s) {
	case "value", "":
		return SlotValue, nil
	case "statement":
		return SlotStatement, nil
	default:
		return SlotValue, fmt.Errorf("unknown slot kind %q: must be 'value' or 'statement'", s)
	}
}

// FieldKind is the literal type of a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
)

func (k FieldKind) String() string {
	if k == FieldNumber {
		return "number"
	}
	return "string"
}

// ctyType returns the cty type matching the field kind.
func (k FieldKind) ctyType() cty.Type {
	if k == FieldNumber {
		return cty.Number
	}
	return cty.String
}

// ZeroValue is the literal an unset field of this kind stands for.
func (k FieldKind) ZeroValue() cty.Value {
	if k == FieldNumber {
		return cty.NumberIntVal(0)
	}
	return cty.StringVal("")
}

// Input is a named connection point on a block.
type Input struct {
	Name string
	Kind SlotKind

	// Check is the editor's type check for the slot ("String", "Number").
	// It only feeds the default when Default is not declared.
	Check string

	// Default is the literal used when nothing is plugged into a value slot.
	// cty.NilVal means the definition did not declare one.
	Default cty.Value
}

// DefaultValue returns the declared default or the zero literal implied by
// the slot check.
func (in Input) DefaultValue() cty.Value {
	if in.Default != cty.NilVal {
		return in.Default
	}
	if strings.EqualFold(in.Check, "Number") {
		return cty.NumberIntVal(0)
	}
	return cty.StringVal("")
}

// Field is a literal value edited directly on the block.
type Field struct {
	Name    string
	Kind    FieldKind
	Default cty.Value
}

// DefaultValue returns the declared default or the zero literal of the kind.
func (f Field) DefaultValue() cty.Value {
	if f.Default != cty.NilVal {
		return f.Default
	}
	return f.Kind.ZeroValue()
}

// Type is the registered definition of a block.
type Type struct {
	Name    string
	Message string
	Colour  string
	Tooltip string
	Output  OutputKind
	Inputs  []Input
	Fields  []Field
}

// Input looks up an input slot by name.
func (t *Type) Input(name string) (Input, bool) {
	for _, in := range t.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// Field looks up a field by name.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the structural rules every registered type must satisfy.
func (t *Type) Validate() error {
	if t == nil {
		return errors.New("block definition is nil")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("block definition has an empty type name")
	}

	var errs []error
	seen := make(map[string]struct{}, len(t.Inputs)+len(t.Fields))
	for _, in := range t.Inputs {
		if in.Name == "" {
			errs = append(errs, fmt.Errorf("block %q: input with empty name", t.Name))
			continue
		}
		if _, dup := seen[in.Name]; dup {
			errs = append(errs, fmt.Errorf("block %q: duplicate slot or field %q", t.Name, in.Name))
		}
		seen[in.Name] = struct{}{}
		if in.Kind == SlotStatement && in.Default != cty.NilVal {
			errs = append(errs, fmt.Errorf("block %q: statement input %q cannot declare a default", t.Name, in.Name))
		}
	}
	for _, f := range t.Fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("block %q: field with empty name", t.Name))
			continue
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("block %q: duplicate slot or field %q", t.Name, f.Name))
		}
		seen[f.Name] = struct{}{}
		if f.Default != cty.NilVal && !f.Default.Type().Equals(f.Kind.ctyType()) {
			errs = append(errs, fmt.Errorf("block %q: default of field %q is %s, want %s",
				t.Name, f.Name, f.Default.Type().FriendlyName(), f.Kind))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy so the registry can hand out definitions that
// callers cannot mutate behind its back.
func (t *Type) Clone() *Type {
	c := *t
	c.Inputs = append([]Input(nil), t.Inputs...)
	c.Fields = append([]Field(nil), t.Fields...)
	return &c
}
