package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
)

// ValidateGenerators performs a parity check between the registered
// definitions and the code generators. Every definition without a generator
// is reported; placing such a block is a hard generation failure later on.
func (r *Registry) ValidateGenerators(ctx context.Context, hasGenerator func(name string) bool) error {
	logger := ctxlog.FromContext(ctx)

	var missing []string
	for _, name := range r.Names() {
		if !hasGenerator(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		logger.Debug("Every block definition has a generator", "count", r.Len())
		return nil
	}

	logger.Warn("Block definitions without a generator", "types", missing)
	return fmt.Errorf("no generator for block types: %s", strings.Join(missing, ", "))
}
