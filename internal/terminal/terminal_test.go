package terminal_test

import (
	"context"
	"strings"
	"testing"

	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/terminal"
	"github.com/specialistvlad/algoflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestView_RendersOnlyWhenOpen(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	out := &testutil.SafeBuffer{}
	view := terminal.NewView(out, false)
	log := sandbox.NewLog()
	log.Subscribe(view.Render)

	// --- Act ---
	log.Append(sandbox.TagInfo, "Starting smart contract deployment...")
	require.Empty(t, out.String(), "a closed view writes nothing")
	view.Open()
	log.Append(sandbox.TagLog, "hello")

	// --- Assert ---
	assert.Equal(t, "[INFO] Starting smart contract deployment...\n[LOG] hello\n", out.String())
}

func TestView_WritesDeltasAndRestartsAfterReset(t *testing.T) {
	t.Parallel()
	out := &testutil.SafeBuffer{}
	view := terminal.NewView(out, false)
	view.Open()

	view.Render("[INFO] a\n")
	view.Render("[INFO] a\n[LOG] b\n")
	view.Render("")
	view.Render("[INFO] c\n")

	assert.Equal(t, "[INFO] a\n[LOG] b\n[INFO] c\n", out.String())
}

func TestView_Toggle(t *testing.T) {
	t.Parallel()
	out := &testutil.SafeBuffer{}
	view := terminal.NewView(out, false)
	view.Render("[SUCCESS] done\n")

	assert.True(t, view.Toggle())
	assert.True(t, view.IsOpen())
	assert.False(t, view.Toggle())
	view.Render("[SUCCESS] done\n[LOG] later\n")
	assert.True(t, view.Toggle())

	assert.Equal(t, "[SUCCESS] done\n[SUCCESS] done\n[LOG] later\n", out.String(),
		"reopening shows the whole current snapshot")
}

func TestView_Colour(t *testing.T) {
	t.Parallel()
	out := &testutil.SafeBuffer{}
	view := terminal.NewView(out, true)
	view.Open()

	view.Render("[ERROR] boom\n" + sandbox.Separator + "\nplain\n")

	lines := strings.Split(out.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "\x1b[31m[ERROR] boom\x1b[0m", lines[0])
	assert.Equal(t, "\x1b[90m"+sandbox.Separator+"\x1b[0m", lines[1])
	assert.Equal(t, "plain", lines[2])
}

func TestDialRelay_InvalidURL(t *testing.T) {
	t.Parallel()
	_, err := terminal.DialRelay(context.Background(), "localhost:3000", "/")

	assert.ErrorContains(t, err, "must be absolute")
}
