package script

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// String converts b to text the way string concatenation does.
func String(b Binding) string { return toString(b) }

func toString(b Binding) string {
	switch b.kind {
	case kindUndefined:
		return "undefined"
	case kindFunc:
		return "function() { [native code] }"
	case kindNamespace:
		return "[object Object]"
	}
	return valueString(b.val)
}

func valueString(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if !v.IsKnown() {
		return "undefined"
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Number:
		return FormatNumber(v.AsBigFloat())
	case ty == cty.Bool:
		return strconv.FormatBool(v.True())
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, el := it.Element()
			if el.IsNull() {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, valueString(el))
		}
		return strings.Join(parts, ",")
	}
	return "[object Object]"
}

// FormatNumber renders integers exactly and fractions as the shortest
// decimal that identifies their double precision value, so 1/3 prints as
// 0.3333333333333333.
func FormatNumber(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return i.String()
	}
	if f.IsInf() {
		if f.Sign() < 0 {
			return "-Infinity"
		}
		return "Infinity"
	}
	d, _ := f.Float64()
	if abs := math.Abs(d); abs != 0 && abs < 1e-6 {
		// Exponent form below a millionth, without a zero-padded exponent.
		mant, exp, _ := strings.Cut(strconv.FormatFloat(d, 'e', -1, 64), "e")
		n, _ := strconv.Atoi(exp)
		return mant + "e" + strconv.Itoa(n)
	}
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// IsObject reports whether b renders as structured data rather than as
// plain text: objects, arrays, maps and null.
func IsObject(b Binding) bool {
	if b.kind == kindNamespace {
		return true
	}
	if b.kind != kindValue {
		return false
	}
	if b.val.IsNull() {
		return true
	}
	ty := b.val.Type()
	return ty.IsObjectType() || ty.IsMapType() || ty.IsTupleType() || ty.IsListType() || ty.IsSetType()
}

// JSON renders b as JSON indented by two spaces. Namespaces render as an
// object of their data members.
func JSON(b Binding) (string, error) {
	switch b.kind {
	case kindUndefined:
		return "undefined", nil
	case kindFunc:
		return "undefined", nil
	case kindNamespace:
		attrs := make(map[string]cty.Value)
		for name, member := range b.ns {
			if member.kind == kindValue {
				attrs[name] = member.val
			}
		}
		return valueJSON(cty.ObjectVal(attrs))
	}
	return valueJSON(b.val)
}

func valueJSON(v cty.Value) (string, error) {
	if v.IsNull() {
		return "null", nil
	}
	v, err := cty.Transform(v, doubleFractions)
	if err != nil {
		return "", err
	}
	raw, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

// doubleFractions narrows fractional numbers to double precision so JSON
// output matches FormatNumber.
func doubleFractions(_ cty.Path, v cty.Value) (cty.Value, error) {
	if v.Type() != cty.Number || v.IsNull() || !v.IsKnown() {
		return v, nil
	}
	f := v.AsBigFloat()
	if f.IsInt() || f.IsInf() {
		return v, nil
	}
	d, _ := f.Float64()
	return cty.NumberFloatVal(d), nil
}
