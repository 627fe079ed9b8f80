// Package terminal presents the execution log: a View for the local
// console and a Relay that forwards snapshots to a remote viewer.
package terminal

import (
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/specialistvlad/algoflow/internal/sandbox"
)

// View renders log snapshots to a stream. It holds no state besides its
// visibility and how much of the current snapshot it has written.
type View struct {
	mu      sync.Mutex
	w       io.Writer
	open    bool
	latest  string
	written string
	colors  map[sandbox.Tag]*color.Color
	plain   *color.Color
}

// NewView returns a closed view writing to w.
func NewView(w io.Writer, useColor bool) *View {
	v := &View{
		w: w,
		colors: map[sandbox.Tag]*color.Color{
			sandbox.TagInfo:    color.New(color.FgCyan),
			sandbox.TagLog:     color.New(color.FgWhite),
			sandbox.TagWarn:    color.New(color.FgYellow),
			sandbox.TagError:   color.New(color.FgRed),
			sandbox.TagResult:  color.New(color.FgMagenta),
			sandbox.TagSuccess: color.New(color.FgGreen, color.Bold),
		},
		plain: color.New(color.FgHiBlack),
	}
	for _, c := range append(v.palette(), v.plain) {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return v
}

func (v *View) palette() []*color.Color {
	out := make([]*color.Color, 0, len(v.colors))
	for _, c := range v.colors {
		out = append(out, c)
	}
	return out
}

// Open shows the view and writes whatever the latest snapshot holds.
func (v *View) Open() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.open {
		return
	}
	v.open = true
	v.written = ""
	v.flush()
}

// Close hides the view. Snapshots keep being recorded while closed.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = false
}

// Toggle flips visibility and reports whether the view is now open.
func (v *View) Toggle() bool {
	if v.IsOpen() {
		v.Close()
		return false
	}
	v.Open()
	return true
}

// IsOpen reports whether the view is visible.
func (v *View) IsOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.open
}

// Render records snapshot and, when open, writes what is new since the
// last write. A snapshot that does not extend the previous one (a new run)
// is written from the start.
func (v *View) Render(snapshot string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.latest = snapshot
	if v.open {
		v.flush()
	}
}

func (v *View) flush() {
	delta := v.latest
	if strings.HasPrefix(v.latest, v.written) {
		delta = v.latest[len(v.written):]
	}
	v.written = v.latest
	if delta == "" {
		return
	}
	var sb strings.Builder
	for _, line := range strings.SplitAfter(delta, "\n") {
		if line == "" {
			continue
		}
		sb.WriteString(v.paint(line))
	}
	_, _ = io.WriteString(v.w, sb.String())
}

// paint colours one line by its tag. The trailing newline stays uncoloured.
func (v *View) paint(line string) string {
	body, nl := strings.CutSuffix(line, "\n")
	end := ""
	if nl {
		end = "\n"
	}
	if strings.HasPrefix(body, "[") {
		if i := strings.Index(body, "] "); i > 0 {
			if c, ok := v.colors[sandbox.Tag(body[1:i])]; ok {
				return c.Sprint(body) + end
			}
		}
	}
	if body == sandbox.Separator {
		return v.plain.Sprint(body) + end
	}
	return body + end
}
