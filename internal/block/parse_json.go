package block

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/xeipuuv/gojsonschema"
	"github.com/zclconf/go-cty/cty"
)

//go:embed definition-schema.json
var definitionSchemaBytes []byte

var definitionSchema *gojsonschema.Schema

func init() {
	var err error
	definitionSchema, err = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(definitionSchemaBytes))
	if err != nil {
		panic(fmt.Sprintf("failed to load block definition schema: %v", err))
	}
}

// jsonDefinition mirrors one entry of the editor's JSON definition array.
type jsonDefinition struct {
	Type              string          `json:"type"`
	Message0          string          `json:"message0"`
	Args0             []jsonArg       `json:"args0"`
	Colour            json.RawMessage `json:"colour"`
	Tooltip           string          `json:"tooltip"`
	Output            json.RawMessage `json:"output"`
	PreviousStatement json.RawMessage `json:"previousStatement"`
	NextStatement     json.RawMessage `json:"nextStatement"`
}

type jsonArg struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Check json.RawMessage `json:"check"`
	Text  *string         `json:"text"`
	Value json.Number     `json:"value"`
}

// ParseDefinitionsJSON decodes a JSON array of block definitions. Every
// entry is checked against the embedded schema on its own, so a malformed
// entry is reported and skipped while the rest load.
func ParseDefinitionsJSON(ctx context.Context, data []byte, path string) ([]*Type, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing JSON block definitions", "file_path", path)

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid block definition file",
			Detail:   fmt.Sprintf("%s: expected a JSON array of definitions: %s.", path, err),
		}}
	}

	var diags hcl.Diagnostics
	types := make([]*Type, 0, len(entries))
	for i, raw := range entries {
		def, err := decodeJSONDefinition(raw)
		if err == nil {
			err = def.Validate()
		}
		if err != nil {
			logger.Warn("Skipping malformed block definition", "file_path", path, "index", i, "error", err)
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid block definition",
				Detail:   fmt.Sprintf("%s: entry %d: %s", path, i, err),
			})
			continue
		}
		types = append(types, def)
	}

	logger.Debug("Parsed JSON block definitions", "file_path", path, "count", len(types))
	return types, diags
}

func decodeJSONDefinition(raw json.RawMessage) (*Type, error) {
	result, err := definitionSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var in jsonDefinition
	if err := dec.Decode(&in); err != nil {
		return nil, err
	}

	def := &Type{
		Name:    in.Type,
		Message: in.Message0,
		Tooltip: in.Tooltip,
		Colour:  jsonColour(in.Colour),
	}
	if len(in.Output) > 0 {
		def.Output = OutputValue
	}

	for _, arg := range in.Args0 {
		switch arg.Type {
		case "input_value":
			def.Inputs = append(def.Inputs, Input{Name: arg.Name, Kind: SlotValue, Check: jsonCheck(arg.Check)})
		case "input_statement":
			def.Inputs = append(def.Inputs, Input{Name: arg.Name, Kind: SlotStatement, Check: jsonCheck(arg.Check)})
		case "field_input", "field_text":
			f := Field{Name: arg.Name, Kind: FieldText}
			if arg.Text != nil {
				f.Default = cty.StringVal(*arg.Text)
			}
			def.Fields = append(def.Fields, f)
		case "field_number":
			f := Field{Name: arg.Name, Kind: FieldNumber}
			if arg.Value != "" {
				v, err := cty.ParseNumberVal(arg.Value.String())
				if err != nil {
					return nil, fmt.Errorf("field %q: %w", arg.Name, err)
				}
				f.Default = v
			}
			def.Fields = append(def.Fields, f)
		}
	}
	return def, nil
}

// jsonColour accepts both `230` and `"230"`.
func jsonColour(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// jsonCheck returns the first check of a slot; Blockly allows a list.
func jsonCheck(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
