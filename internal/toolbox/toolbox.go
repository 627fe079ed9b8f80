// Package toolbox assembles the categorized palette of placeable blocks
// that the editor renders as a flyout.
package toolbox

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Category is one named drawer of the palette.
type Category struct {
	Name    string
	Colour  string
	Members []string
}

// Entry is a node of the toolbox description: a category or a block.
type Entry struct {
	Kind     string  `json:"kind"`
	Name     string  `json:"name,omitempty"`
	Colour   string  `json:"colour,omitempty"`
	Type     string  `json:"type,omitempty"`
	Contents []Entry `json:"contents,omitempty"`
}

// Description is the toolbox definition consumed by the editor.
type Description struct {
	Kind     string  `json:"kind"`
	Contents []Entry `json:"contents"`
}

// ReferenceError reports a category member that is not a registered block.
type ReferenceError struct {
	Category string
	Block    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("toolbox category %q references unknown block type %q", e.Category, e.Block)
}

// Build turns categories into a toolbox description, preserving order.
// Members for which known returns false are left out and reported; the
// rest of the toolbox is still built. A nil known accepts every member.
func Build(categories []Category, known func(name string) bool) (Description, []*ReferenceError) {
	desc := Description{Kind: "categoryToolbox", Contents: make([]Entry, 0, len(categories))}
	var refErrs []*ReferenceError

	for _, cat := range categories {
		entry := Entry{Kind: "category", Name: cat.Name, Colour: cat.Colour, Contents: []Entry{}}
		for _, member := range cat.Members {
			if known != nil && !known(member) {
				refErrs = append(refErrs, &ReferenceError{Category: cat.Name, Block: member})
				continue
			}
			entry.Contents = append(entry.Contents, Entry{Kind: "block", Type: member})
		}
		desc.Contents = append(desc.Contents, entry)
	}
	return desc, refErrs
}

// XML renders the description in the editor's toolbox XML format.
func (d Description) XML() string {
	var sb strings.Builder
	sb.WriteString(`<xml xmlns="https://developers.google.com/blockly/xml" id="toolbox" style="display: none">`)
	for _, cat := range d.Contents {
		writeEntryXML(&sb, cat)
	}
	sb.WriteString(`</xml>`)
	return sb.String()
}

func writeEntryXML(sb *strings.Builder, e Entry) {
	switch e.Kind {
	case "category":
		sb.WriteString(`<category name="` + escape(e.Name) + `" colour="` + escape(e.Colour) + `">`)
		for _, child := range e.Contents {
			writeEntryXML(sb, child)
		}
		sb.WriteString(`</category>`)
	case "block":
		sb.WriteString(`<block type="` + escape(e.Type) + `"></block>`)
	}
}

func escape(s string) string {
	var sb strings.Builder
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

// Default returns the stock categories.
func Default() []Category {
	return []Category{
		{Name: "Core", Colour: "230", Members: []string{"app_create", "app_call"}},
		{Name: "Transactions", Colour: "160", Members: []string{"inner_payment", "asset_config"}},
		{Name: "State", Colour: "290", Members: []string{"global_state", "local_state"}},
		{Name: "Values", Colour: "160", Members: []string{"text_value", "number_value"}},
	}
}
