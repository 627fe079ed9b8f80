package toolbox

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/fsutil"
)

type categoriesFile struct {
	Categories []*hclCategory `hcl:"category,block"`
}

type hclCategory struct {
	Name   string   `hcl:"name,label"`
	Colour string   `hcl:"colour,optional"`
	Blocks []string `hcl:"blocks"`
}

// LoadCategories reads `category "Name" { colour = "230" blocks = [...] }`
// declarations from the .hcl files under path, in file order.
func LoadCategories(ctx context.Context, path string) ([]Category, error) {
	logger := ctxlog.FromContext(ctx)

	filePaths, err := fsutil.FindFiles(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find toolbox files in %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	var categories []Category
	for _, filePath := range filePaths {
		file, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse toolbox file %s: %w", filePath, diags)
		}
		var parsed categoriesFile
		if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode toolbox file %s: %w", filePath, diags)
		}
		for _, c := range parsed.Categories {
			categories = append(categories, Category{Name: c.Name, Colour: c.Colour, Members: c.Blocks})
		}
		logger.Debug("Loaded toolbox categories", "file", filePath, "count", len(parsed.Categories))
	}
	return categories, nil
}
