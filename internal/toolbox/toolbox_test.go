package toolbox

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DefaultXML(t *testing.T) {
	t.Parallel()
	// --- Act ---
	desc, refErrs := Build(Default(), nil)

	// --- Assert ---
	require.Empty(t, refErrs)
	want := `<xml xmlns="https://developers.google.com/blockly/xml" id="toolbox" style="display: none">` +
		`<category name="Core" colour="230"><block type="app_create"></block><block type="app_call"></block></category>` +
		`<category name="Transactions" colour="160"><block type="inner_payment"></block><block type="asset_config"></block></category>` +
		`<category name="State" colour="290"><block type="global_state"></block><block type="local_state"></block></category>` +
		`<category name="Values" colour="160"><block type="text_value"></block><block type="number_value"></block></category>` +
		`</xml>`
	assert.Equal(t, want, desc.XML())
}

func TestBuild_DanglingReferenceReported(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	categories := []Category{
		{Name: "Core", Colour: "230", Members: []string{"app_create", "warp_drive"}},
		{Name: "Empty", Colour: "10"},
	}
	known := func(name string) bool { return name == "app_create" }

	// --- Act ---
	desc, refErrs := Build(categories, known)

	// --- Assert ---
	require.Len(t, refErrs, 1)
	assert.Equal(t, &ReferenceError{Category: "Core", Block: "warp_drive"}, refErrs[0])

	want := Description{
		Kind: "categoryToolbox",
		Contents: []Entry{
			{Kind: "category", Name: "Core", Colour: "230", Contents: []Entry{{Kind: "block", Type: "app_create"}}},
			{Kind: "category", Name: "Empty", Colour: "10", Contents: []Entry{}},
		},
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestDescription_JSON(t *testing.T) {
	t.Parallel()
	desc, _ := Build([]Category{{Name: "V", Colour: "1", Members: []string{"text_value"}}}, nil)

	data, err := json.Marshal(desc)

	require.NoError(t, err)
	assert.JSONEq(t,
		`{"kind":"categoryToolbox","contents":[{"kind":"category","name":"V","colour":"1","contents":[{"kind":"block","type":"text_value"}]}]}`,
		string(data))
}

func TestXML_Escapes(t *testing.T) {
	t.Parallel()
	desc, _ := Build([]Category{{Name: `A&B "C"`, Colour: "1"}}, nil)
	assert.Contains(t, desc.XML(), `name="A&amp;B &#34;C&#34;"`)
}

func TestLoadCategories(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dir := t.TempDir()
	src := `
category "Core" {
  colour = "230"
  blocks = ["app_create", "app_call"]
}
category "Values" {
  blocks = ["text_value"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toolbox.hcl"), []byte(src), 0o644))

	// --- Act ---
	cats, err := LoadCategories(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	want := []Category{
		{Name: "Core", Colour: "230", Members: []string{"app_create", "app_call"}},
		{Name: "Values", Members: []string{"text_value"}},
	}
	if diff := cmp.Diff(want, cats); diff != "" {
		t.Errorf("LoadCategories() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCategories_BadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toolbox.hcl"), []byte(`category "x" {}`), 0o644))

	_, err := LoadCategories(context.Background(), dir)

	assert.Error(t, err, "blocks is required")
}
