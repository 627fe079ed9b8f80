package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Blockly's workspace serialization, reduced to what the generator reads.
type jsonWorkspace struct {
	Blocks struct {
		Blocks []*jsonBlock `json:"blocks"`
	} `json:"blocks"`
}

type jsonBlock struct {
	Type   string                     `json:"type"`
	ID     string                     `json:"id"`
	X      float64                    `json:"x"`
	Y      float64                    `json:"y"`
	Fields map[string]json.RawMessage `json:"fields"`
	Inputs map[string]jsonConnection  `json:"inputs"`
	Next   *jsonConnection            `json:"next"`
}

type jsonConnection struct {
	Block  *jsonBlock `json:"block"`
	Shadow *jsonBlock `json:"shadow"`
}

// occupant is the real block when present, else the shadow.
func (c *jsonConnection) occupant() *jsonBlock {
	if c == nil {
		return nil
	}
	if c.Block != nil {
		return c.Block
	}
	return c.Shadow
}

// LoadJSON decodes a Blockly workspace serialization. Top blocks are
// returned in display order: by y, then by x.
func LoadJSON(ctx context.Context, r io.Reader) ([]*block.Instance, error) {
	var ws jsonWorkspace
	if err := json.NewDecoder(r).Decode(&ws); err != nil {
		return nil, fmt.Errorf("failed to decode workspace: %w", err)
	}

	for i, top := range ws.Blocks.Blocks {
		if top == nil {
			return nil, fmt.Errorf("block %d is null", i)
		}
	}
	tops := append([]*jsonBlock(nil), ws.Blocks.Blocks...)
	sort.SliceStable(tops, func(i, j int) bool {
		if tops[i].Y != tops[j].Y {
			return tops[i].Y < tops[j].Y
		}
		return tops[i].X < tops[j].X
	})

	ids := newIDs()
	roots := make([]*block.Instance, 0, len(tops))
	for _, top := range tops {
		inst, err := convertJSONBlock(top, ids)
		if err != nil {
			return nil, err
		}
		roots = append(roots, inst)
	}
	ctxlog.FromContext(ctx).Debug("Loaded JSON workspace.", "roots", len(roots), "blocks", ids.count())
	return roots, nil
}

func convertJSONBlock(jb *jsonBlock, ids *idSet) (*block.Instance, error) {
	if jb == nil {
		return nil, fmt.Errorf("block is null")
	}
	if jb.Type == "" {
		return nil, fmt.Errorf("block %q has no type", jb.ID)
	}
	id, err := ids.claim(jb.ID)
	if err != nil {
		return nil, err
	}
	inst := &block.Instance{ID: id, Type: jb.Type}

	if len(jb.Fields) > 0 {
		inst.Fields = make(map[string]cty.Value, len(jb.Fields))
		for name, raw := range jb.Fields {
			v, err := fieldValue(raw)
			if err != nil {
				return nil, fmt.Errorf("block %q field %q: %w", id, name, err)
			}
			inst.Fields[name] = v
		}
	}

	names := make([]string, 0, len(jb.Inputs))
	for name := range jb.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		conn := jb.Inputs[name]
		child := conn.occupant()
		if child == nil {
			continue
		}
		childInst, err := convertJSONBlock(child, ids)
		if err != nil {
			return nil, err
		}
		if inst.Inputs == nil {
			inst.Inputs = make(map[string]*block.Instance)
		}
		inst.Inputs[name] = childInst
	}

	if next := jb.Next.occupant(); next != nil {
		inst.Next, err = convertJSONBlock(next, ids)
		if err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// fieldValue decodes a field's JSON value with its implied cty type.
func fieldValue(raw json.RawMessage) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}
