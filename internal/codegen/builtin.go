package codegen

import (
	"fmt"

	"github.com/specialistvlad/algoflow/internal/block"
)

// Builtin registers the block functions of the stock block set.
func Builtin(g *Generator) {
	g.ForBlock["app_create"] = call("await createApplication(%s, %s, %s);\n", "NAME", "DETAILS", "PRICING")
	g.ForBlock["app_call"] = call("await callApplication(%s, %s);\n", "APP_ID", "METHOD")
	g.ForBlock["inner_payment"] = call("await makePayment(%s, %s);\n", "RECEIVER", "AMOUNT")
	g.ForBlock["asset_config"] = call("await configureAsset(%s, %s, %s);\n", "ASSET_NAME", "TOTAL", "DECIMALS")
	g.ForBlock["global_state"] = valueCall("getGlobalState(%s)", "KEY")
	g.ForBlock["local_state"] = valueCall("getLocalState(%s, %s)", "ACCOUNT", "KEY")
	g.ForBlock["text_value"] = literal("TEXT")
	g.ForBlock["number_value"] = literal("NUM")
}

// NewBuiltin returns a Generator with the stock block functions.
func NewBuiltin(defs Definitions) *Generator {
	g := New(defs)
	Builtin(g)
	return g
}

func slotArgs(p *Pass, b *block.Instance, slots []string) ([]any, error) {
	args := make([]any, 0, len(slots))
	for _, slot := range slots {
		code, err := p.ValueOr(b, slot, OrderAtomic)
		if err != nil {
			return nil, err
		}
		args = append(args, code)
	}
	return args, nil
}

// call builds a statement block function from a format with one verb per slot.
func call(format string, slots ...string) BlockFunc {
	return func(p *Pass, b *block.Instance) (Fragment, error) {
		args, err := slotArgs(p, b, slots)
		if err != nil {
			return Fragment{}, err
		}
		return Statement(fmt.Sprintf(format, args...)), nil
	}
}

// valueCall builds a value block function whose result is a function call.
func valueCall(format string, slots ...string) BlockFunc {
	return func(p *Pass, b *block.Instance) (Fragment, error) {
		args, err := slotArgs(p, b, slots)
		if err != nil {
			return Fragment{}, err
		}
		return Value(fmt.Sprintf(format, args...), OrderFunctionCall), nil
	}
}

// literal builds a value block function that emits one field as a literal.
func literal(field string) BlockFunc {
	return func(p *Pass, b *block.Instance) (Fragment, error) {
		code, err := p.FieldOr(b, field)
		if err != nil {
			return Fragment{}, err
		}
		return Value(code, OrderAtomic), nil
	}
}
