package block

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// definitionRootSchema expects one or more 'block' blocks at the top level.
type definitionRootSchema struct {
	Blocks []*hclBlock `hcl:"block,block"`
}

type hclBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var blockBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "message"},
		{Name: "colour"},
		{Name: "tooltip"},
		{Name: "output"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "field", LabelNames: []string{"name"}},
	},
}

var inputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "kind"},
		{Name: "check"},
		{Name: "default"},
	},
}

var fieldBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "default"},
	},
}

// ParseDefinitionsHCL decodes every 'block' definition in an HCL file.
//
// Unlike a fail-fast decoder, a broken definition is reported in the
// returned diagnostics and skipped; the valid definitions are still
// returned so the caller can register them.
func ParseDefinitionsHCL(ctx context.Context, file *hcl.File, path string) ([]*Type, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing block definitions", "file_path", path)

	var allDiags hcl.Diagnostics
	if file == nil {
		return nil, append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "HCL file is nil",
			Detail:   fmt.Sprintf("No content was parsed from %s.", path),
		})
	}

	root := &definitionRootSchema{}
	diags := gohcl.DecodeBody(file.Body, nil, root)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	types := make([]*Type, 0, len(root.Blocks))
	for _, raw := range root.Blocks {
		def, diags := decodeBlock(raw)
		allDiags = append(allDiags, diags...)
		if diags.HasErrors() {
			continue
		}
		if err := def.Validate(); err != nil {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid block definition",
				Detail:   err.Error(),
			})
			continue
		}
		types = append(types, def)
	}

	logger.Debug("Parsed block definitions", "file_path", path, "count", len(types))
	return types, allDiags
}

func decodeBlock(raw *hclBlock) (*Type, hcl.Diagnostics) {
	content, diags := raw.Body.Content(blockBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	def := &Type{Name: raw.Name}
	for name, dst := range map[string]*string{
		"message": &def.Message,
		"colour":  &def.Colour,
		"tooltip": &def.Tooltip,
	} {
		if attr, ok := content.Attributes[name]; ok {
			diags = append(diags, decodeString(attr.Expr, dst)...)
		}
	}

	if attr, ok := content.Attributes["output"]; ok {
		var kw string
		diags = append(diags, decodeString(attr.Expr, &kw)...)
		kind, err := ParseOutputKind(kw)
		if err != nil {
			diags = append(diags, errorDiag("Invalid output kind", err.Error(), attr.Expr.Range()))
		}
		def.Output = kind
	}

	for _, b := range content.Blocks.OfType("input") {
		in, inDiags := decodeInput(b)
		diags = append(diags, inDiags...)
		def.Inputs = append(def.Inputs, in)
	}
	for _, b := range content.Blocks.OfType("field") {
		f, fDiags := decodeField(b)
		diags = append(diags, fDiags...)
		def.Fields = append(def.Fields, f)
	}
	return def, diags
}

func decodeInput(b *hcl.Block) (Input, hcl.Diagnostics) {
	in := Input{Name: b.Labels[0]}
	content, diags := b.Body.Content(inputBodySchema)
	if diags.HasErrors() {
		return in, diags
	}

	if attr, ok := content.Attributes["kind"]; ok {
		var kw string
		diags = append(diags, decodeString(attr.Expr, &kw)...)
		kind, err := ParseSlotKind(kw)
		if err != nil {
			diags = append(diags, errorDiag("Invalid input kind", err.Error(), attr.Expr.Range()))
		}
		in.Kind = kind
	}
	if attr, ok := content.Attributes["check"]; ok {
		diags = append(diags, decodeString(attr.Expr, &in.Check)...)
	}
	if attr, ok := content.Attributes["default"]; ok {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			if !val.Type().Equals(cty.String) && !val.Type().Equals(cty.Number) {
				diags = append(diags, errorDiag("Invalid input default",
					fmt.Sprintf("The default of input '%s' must be a string or number literal.", in.Name),
					attr.Expr.Range()))
			} else {
				in.Default = val
			}
		}
	}
	return in, diags
}

func decodeField(b *hcl.Block) (Field, hcl.Diagnostics) {
	f := Field{Name: b.Labels[0]}
	content, diags := b.Body.Content(fieldBodySchema)
	if diags.HasErrors() {
		return f, diags
	}

	if attr, ok := content.Attributes["type"]; ok {
		kind, kindDiags := fieldKindForExpr(attr.Expr)
		diags = append(diags, kindDiags...)
		f.Kind = kind
	}
	if attr, ok := content.Attributes["default"]; ok {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			converted, err := convert.Convert(val, f.Kind.ctyType())
			if err != nil {
				diags = append(diags, errorDiag("Invalid field default",
					fmt.Sprintf("The default of field '%s' is not a valid %s: %s.", f.Name, f.Kind, err),
					attr.Expr.Range()))
			} else {
				f.Default = converted
			}
		}
	}
	return f, diags
}

// fieldKindForExpr accepts the bare `string` or `number` keyword.
func fieldKindForExpr(expr hcl.Expression) (FieldKind, hcl.Diagnostics) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(traversal) != 1 {
		return FieldText, hcl.Diagnostics{errorDiag("Invalid type specification",
			"The 'type' attribute must be a simple keyword: 'string' or 'number'.", expr.Range())}
	}

	switch traversal.RootName() {
	case "string":
		return FieldText, nil
	case "number":
		return FieldNumber, nil
	default:
		return FieldText, hcl.Diagnostics{errorDiag("Unsupported field type",
			fmt.Sprintf("The type '%s' is not supported for fields.", traversal.RootName()), expr.Range())}
	}
}

func decodeString(expr hcl.Expression, dst *string) hcl.Diagnostics {
	return gohcl.DecodeExpression(expr, nil, dst)
}

func errorDiag(summary, detail string, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	}
}
