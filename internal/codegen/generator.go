package codegen

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/script"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Definitions is the read side of the block registry.
type Definitions interface {
	Lookup(name string) (*block.Type, bool)
}

// Fragment is the code produced for a single block.
type Fragment struct {
	Code string
	// Order is meaningful for value fragments only.
	Order Order
	Value bool
}

// Statement returns a statement fragment.
func Statement(code string) Fragment {
	return Fragment{Code: code}
}

// Value returns a value fragment with its binding order.
func Value(code string, order Order) Fragment {
	return Fragment{Code: code, Order: order, Value: true}
}

// BlockFunc turns one block into code. It must not keep state between calls.
type BlockFunc func(p *Pass, b *block.Instance) (Fragment, error)

// Generator maps block types to their BlockFunc.
type Generator struct {
	defs     Definitions
	ForBlock map[string]BlockFunc
}

// New creates a Generator with no block functions.
func New(defs Definitions) *Generator {
	return &Generator{defs: defs, ForBlock: make(map[string]BlockFunc)}
}

// Has reports whether a block function is registered for the type.
func (g *Generator) Has(name string) bool {
	_, ok := g.ForBlock[name]
	return ok
}

var (
	leadingBlankLines  = regexp.MustCompile(`^\s+\n`)
	trailingWhitespace = regexp.MustCompile(`\n\s+$`)
	trailingSpaces     = regexp.MustCompile(`[ \t]+\n`)
)

// Generate walks roots in order and returns the program text. A top-level
// value block becomes an expression statement. On failure the text of the
// roots generated so far is returned together with a *GenerationError.
func (g *Generator) Generate(ctx context.Context, roots []*block.Instance) (string, error) {
	logger := ctxlog.FromContext(ctx)

	parts := make([]string, 0, len(roots))
	var genErr error
	for _, root := range roots {
		if root == nil {
			continue
		}
		p := &Pass{g: g, active: make(map[*block.Instance]struct{})}
		code, err := p.chainToCode(root)
		if err != nil {
			logger.Warn("Code generation failed", "root", root.ID, "error", err)
			genErr = err
			break
		}
		parts = append(parts, code)
	}

	code := "\n\n\n" + strings.Join(parts, "\n")
	code = leadingBlankLines.ReplaceAllString(code, "")
	code = trailingWhitespace.ReplaceAllString(code, "\n")
	code = trailingSpaces.ReplaceAllString(code, "\n")

	logger.Debug("Generated program", "roots", len(parts), "bytes", len(code))
	return code, genErr
}

// Pass is the state of one root's generation: the blocks on the current
// path, used to detect cycles.
type Pass struct {
	g      *Generator
	active map[*block.Instance]struct{}
}

// Definition returns the registered type of b.
func (p *Pass) Definition(b *block.Instance) (*block.Type, error) {
	def, ok := p.g.defs.Lookup(b.Type)
	if !ok {
		return nil, &GenerationError{BlockID: b.ID, Type: b.Type, Reason: "block type is not registered"}
	}
	return def, nil
}

func (p *Pass) blockToCode(b *block.Instance) (Fragment, error) {
	if _, seen := p.active[b]; seen {
		return Fragment{}, &GenerationError{BlockID: b.ID, Type: b.Type, Reason: "block is its own descendant"}
	}
	if _, err := p.Definition(b); err != nil {
		return Fragment{}, err
	}
	fn, ok := p.g.ForBlock[b.Type]
	if !ok {
		return Fragment{}, &GenerationError{BlockID: b.ID, Type: b.Type, Reason: "no generator registered"}
	}

	p.active[b] = struct{}{}
	defer delete(p.active, b)
	return fn(p, b)
}

// chainToCode generates b and every block stacked below it.
func (p *Pass) chainToCode(b *block.Instance) (string, error) {
	var sb strings.Builder
	var chain []*block.Instance
	defer func() {
		for _, c := range chain {
			delete(p.active, c)
		}
	}()

	for cur := b; cur != nil; cur = cur.Next {
		frag, err := p.blockToCode(cur)
		if err != nil {
			return sb.String(), err
		}
		if frag.Value {
			sb.WriteString(frag.Code + ";\n")
		} else {
			sb.WriteString(frag.Code)
		}
		p.active[cur] = struct{}{}
		chain = append(chain, cur)
	}
	return sb.String(), nil
}

// ValueToCode generates the block plugged into a value slot. It returns
// ok=false when the slot is empty or the child produced no code, so the
// caller can fall back to a default. The child is parenthesised when it
// binds looser than outer.
func (p *Pass) ValueToCode(b *block.Instance, slot string, outer Order) (code string, ok bool, err error) {
	child := b.Input(slot)
	if child == nil {
		return "", false, nil
	}
	frag, err := p.blockToCode(child)
	if err != nil {
		return "", false, err
	}
	if !frag.Value {
		return "", false, &GenerationError{BlockID: child.ID, Type: child.Type,
			Reason: fmt.Sprintf("statement block plugged into value slot %q", slot)}
	}
	if frag.Code == "" {
		return "", false, nil
	}
	if needsParens(outer, frag.Order) {
		return "(" + frag.Code + ")", true, nil
	}
	return frag.Code, true, nil
}

// ValueOr is ValueToCode with the slot's declared default applied to an
// empty slot.
func (p *Pass) ValueOr(b *block.Instance, slot string, outer Order) (string, error) {
	code, ok, err := p.ValueToCode(b, slot, outer)
	if err != nil || ok {
		return code, err
	}
	def, err := p.Definition(b)
	if err != nil {
		return "", err
	}
	in, declared := def.Input(slot)
	if !declared {
		return "", &GenerationError{BlockID: b.ID, Type: b.Type, Reason: fmt.Sprintf("slot %q is not declared", slot)}
	}
	lit, err := Literal(in.DefaultValue())
	if err != nil {
		return "", &GenerationError{BlockID: b.ID, Type: b.Type, Reason: "invalid slot default", Err: err}
	}
	return lit, nil
}

// FieldOr returns the literal for a field: the typed value, or the field's
// declared default when it is unset.
func (p *Pass) FieldOr(b *block.Instance, name string) (string, error) {
	def, err := p.Definition(b)
	if err != nil {
		return "", err
	}
	f, declared := def.Field(name)
	if !declared {
		return "", &GenerationError{BlockID: b.ID, Type: b.Type, Reason: fmt.Sprintf("field %q is not declared", name)}
	}

	v, ok := b.Field(name)
	if !ok {
		v = f.DefaultValue()
	}
	want := cty.String
	if f.Kind == block.FieldNumber {
		want = cty.Number
	}
	v, err = convert.Convert(v, want)
	if err != nil {
		return "", &GenerationError{BlockID: b.ID, Type: b.Type, Reason: fmt.Sprintf("field %q", name), Err: err}
	}
	lit, err := Literal(v)
	if err != nil {
		return "", &GenerationError{BlockID: b.ID, Type: b.Type, Reason: fmt.Sprintf("field %q", name), Err: err}
	}
	return lit, nil
}

// StatementToCode generates the stack plugged into a statement slot,
// indented by two spaces.
func (p *Pass) StatementToCode(b *block.Instance, slot string) (string, error) {
	child := b.Input(slot)
	if child == nil {
		return "", nil
	}
	code, err := p.chainToCode(child)
	if err != nil {
		return "", err
	}
	return prefixLines(code, "  "), nil
}

func prefixLines(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.SplitAfter(text, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString(prefix + line)
	}
	return sb.String()
}

// Literal renders a known cty value as source text: strings are quoted
// with escapes, numbers use the shortest exact decimal form.
func Literal(v cty.Value) (string, error) {
	if v == cty.NilVal || v.IsNull() {
		return "null", nil
	}
	if !v.IsKnown() {
		return "", fmt.Errorf("value is unknown")
	}
	switch {
	case v.Type() == cty.String:
		return strconv.Quote(v.AsString()), nil
	case v.Type() == cty.Number:
		return script.FormatNumber(v.AsBigFloat()), nil
	case v.Type() == cty.Bool:
		return strconv.FormatBool(v.True()), nil
	default:
		return "", fmt.Errorf("unsupported literal type %s", v.Type().FriendlyName())
	}
}
