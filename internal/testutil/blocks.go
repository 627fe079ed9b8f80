package testutil

import (
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/zclconf/go-cty/cty"
)

// Text builds a text_value block.
func Text(id, s string) *block.Instance {
	return &block.Instance{ID: id, Type: "text_value", Fields: map[string]cty.Value{"TEXT": cty.StringVal(s)}}
}

// Number builds a number_value block.
func Number(id string, n int64) *block.Instance {
	return &block.Instance{ID: id, Type: "number_value", Fields: map[string]cty.Value{"NUM": cty.NumberIntVal(n)}}
}

// Block builds a block of any type with the given slot occupants.
func Block(id, typ string, inputs map[string]*block.Instance) *block.Instance {
	return &block.Instance{ID: id, Type: typ, Inputs: inputs}
}

// Stack links blocks through Next and returns the first one.
func Stack(blocks ...*block.Instance) *block.Instance {
	for i := 0; i+1 < len(blocks); i++ {
		blocks[i].Next = blocks[i+1]
	}
	if len(blocks) == 0 {
		return nil
	}
	return blocks[0]
}
