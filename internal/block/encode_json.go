package block

import (
	"encoding/json"
	"fmt"
)

type jsonEncodedDefinition struct {
	Type              string           `json:"type"`
	Message0          string           `json:"message0,omitempty"`
	Args0             []jsonEncodedArg `json:"args0,omitempty"`
	Colour            string           `json:"colour,omitempty"`
	Tooltip           string           `json:"tooltip,omitempty"`
	Output            *json.RawMessage `json:"output,omitempty"`
	PreviousStatement *json.RawMessage `json:"previousStatement,omitempty"`
	NextStatement     *json.RawMessage `json:"nextStatement,omitempty"`
}

type jsonEncodedArg struct {
	Type  string      `json:"type"`
	Name  string      `json:"name"`
	Check string      `json:"check,omitempty"`
	Text  *string     `json:"text,omitempty"`
	Value json.Number `json:"value,omitempty"`
}

// anyConnection is the JSON null the editor reads as "accepts any check".
var anyConnection = json.RawMessage("null")

// MarshalJSON renders the type in the editor's JSON definition format, the
// same format ParseDefinitionsJSON reads. Input defaults have no place in
// that format and are left out.
func (t *Type) MarshalJSON() ([]byte, error) {
	out := jsonEncodedDefinition{
		Type:     t.Name,
		Message0: t.Message,
		Colour:   t.Colour,
		Tooltip:  t.Tooltip,
	}
	if t.Output == OutputValue {
		out.Output = &anyConnection
	} else {
		out.PreviousStatement = &anyConnection
		out.NextStatement = &anyConnection
	}

	for _, in := range t.Inputs {
		arg := jsonEncodedArg{Type: "input_value", Name: in.Name, Check: in.Check}
		if in.Kind == SlotStatement {
			arg.Type = "input_statement"
		}
		out.Args0 = append(out.Args0, arg)
	}
	for _, f := range t.Fields {
		arg := jsonEncodedArg{Type: "field_input", Name: f.Name}
		def := f.DefaultValue()
		if f.Kind == FieldNumber {
			arg.Type = "field_number"
			arg.Value = json.Number(def.AsBigFloat().Text('f', -1))
		} else {
			text := def.AsString()
			arg.Text = &text
		}
		out.Args0 = append(out.Args0, arg)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode block %q: %w", t.Name, err)
	}
	return data, nil
}
