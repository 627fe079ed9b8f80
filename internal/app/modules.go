package app

import (
	"github.com/specialistvlad/algoflow/internal/codegen"
)

// coreGenerators is the definitive list of block function sets compiled
// into the algoflow binary. Block definitions loaded from files need a
// matching entry here to be placeable.
var coreGenerators = []func(*codegen.Generator){
	codegen.Builtin,
}
