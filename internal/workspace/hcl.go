package workspace

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// workspaceRootSchema expects the top blocks of the workspace, in display
// order.
type workspaceRootSchema struct {
	Blocks []*hclPlaced `hcl:"block,block"`
}

type hclPlaced struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

var placedBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "id"},
		{Name: "fields"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "next"},
	},
}

var connectionBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "block", LabelNames: []string{"type"}},
	},
}

// LoadHCL reads a workspace file:
//
//	block "app_create" {
//	  input "NAME" {
//	    block "text_value" { fields = { TEXT = "Shop" } }
//	  }
//	  next {
//	    block "inner_payment" { ... }
//	  }
//	}
//
// Blocks without an id are numbered b1, b2, ... in file order.
func LoadHCL(ctx context.Context, path string) ([]*block.Instance, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse workspace %s: %w", path, diags)
	}
	return decodeHCL(ctx, file, path)
}

// ParseHCL is LoadHCL over in-memory source.
func ParseHCL(ctx context.Context, src []byte, filename string) ([]*block.Instance, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse workspace %s: %w", filename, diags)
	}
	return decodeHCL(ctx, file, filename)
}

func decodeHCL(ctx context.Context, file *hcl.File, path string) ([]*block.Instance, error) {
	root := &workspaceRootSchema{}
	if diags := gohcl.DecodeBody(file.Body, nil, root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode workspace %s: %w", path, diags)
	}

	ids := newIDs()
	roots := make([]*block.Instance, 0, len(root.Blocks))
	var allDiags hcl.Diagnostics
	for _, placed := range root.Blocks {
		inst, diags := decodePlaced(placed.Type, placed.Body, ids)
		allDiags = append(allDiags, diags...)
		if inst != nil {
			roots = append(roots, inst)
		}
	}
	if allDiags.HasErrors() {
		return nil, fmt.Errorf("invalid workspace %s: %w", path, allDiags)
	}

	ctxlog.FromContext(ctx).Debug("Loaded HCL workspace.", "file_path", path, "roots", len(roots), "blocks", ids.count())
	return roots, nil
}

func decodePlaced(typ string, body hcl.Body, ids *idSet) (*block.Instance, hcl.Diagnostics) {
	content, diags := body.Content(placedBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	var id string
	if attr, ok := content.Attributes["id"]; ok {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &id)...)
	}
	claimed, err := ids.claim(id)
	if err != nil {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate block id",
			Detail:   err.Error(),
			Subject:  body.MissingItemRange().Ptr(),
		})
	}
	inst := &block.Instance{ID: claimed, Type: typ}

	if attr, ok := content.Attributes["fields"]; ok {
		fields, fDiags := decodeFields(attr)
		diags = append(diags, fDiags...)
		inst.Fields = fields
	}

	for _, b := range content.Blocks.OfType("input") {
		child, cDiags := decodeConnection(b, ids)
		diags = append(diags, cDiags...)
		if child == nil {
			continue
		}
		if inst.Inputs == nil {
			inst.Inputs = make(map[string]*block.Instance)
		}
		inst.Inputs[b.Labels[0]] = child
	}

	nexts := content.Blocks.OfType("next")
	if len(nexts) > 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate next block",
			Detail:   fmt.Sprintf("Block %q may have only one next block.", claimed),
			Subject:  &nexts[1].DefRange,
		})
	}
	if len(nexts) > 0 {
		next, nDiags := decodeConnection(nexts[0], ids)
		diags = append(diags, nDiags...)
		inst.Next = next
	}
	return inst, diags
}

// decodeConnection decodes the single block placed in an input or next.
func decodeConnection(b *hcl.Block, ids *idSet) (*block.Instance, hcl.Diagnostics) {
	content, diags := b.Body.Content(connectionBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}
	placed := content.Blocks.OfType("block")
	switch len(placed) {
	case 0:
		return nil, diags
	case 1:
		child, cDiags := decodePlaced(placed[0].Labels[0], placed[0].Body, ids)
		return child, append(diags, cDiags...)
	default:
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Too many blocks in connection",
			Detail:   fmt.Sprintf("A %s holds exactly one block.", b.Type),
			Subject:  &placed[1].DefRange,
		})
	}
}

func decodeFields(attr *hcl.Attribute) (map[string]cty.Value, hcl.Diagnostics) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() || !(val.Type().IsObjectType() || val.Type().IsMapType()) {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid fields",
			Detail:   "The fields attribute must be an object of field values.",
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	return val.AsValueMap(), diags
}
