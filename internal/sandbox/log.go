package sandbox

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Tag is the severity of a log line.
type Tag string

const (
	TagNone    Tag = ""
	TagInfo    Tag = "INFO"
	TagLog     Tag = "LOG"
	TagWarn    Tag = "WARN"
	TagError   Tag = "ERROR"
	TagResult  Tag = "RESULT"
	TagSuccess Tag = "SUCCESS"
)

// Separator delimits the program's own output from the surrounding run
// report.
const Separator = "-----------------------------------"

// Line is one entry of the execution log.
type Line struct {
	Tag  Tag
	Text string
}

func (l Line) String() string {
	if l.Tag == TagNone {
		return l.Text
	}
	return "[" + string(l.Tag) + "] " + l.Text
}

// Log is the ordered, append-only output of one run. Every append
// republishes the full snapshot to subscribers.
type Log struct {
	mu     sync.Mutex
	lines  []Line
	subs   map[int]func(snapshot string)
	nextID int
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{subs: make(map[int]func(string))}
}

// Append adds a line and publishes the new snapshot.
func (l *Log) Append(tag Tag, text string) {
	l.mu.Lock()
	l.lines = append(l.lines, Line{Tag: tag, Text: text})
	snapshot, subs := l.snapshotLocked(), l.subscribersLocked()
	l.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Appendf is Append with formatting.
func (l *Log) Appendf(tag Tag, format string, args ...any) {
	l.Append(tag, fmt.Sprintf(format, args...))
}

// Reset empties the log at the start of a run and publishes the empty
// snapshot.
func (l *Log) Reset() {
	l.mu.Lock()
	l.lines = nil
	subs := l.subscribersLocked()
	l.mu.Unlock()

	for _, fn := range subs {
		fn("")
	}
}

// Lines returns a copy of the current lines.
func (l *Log) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Line(nil), l.lines...)
}

// Snapshot returns the whole log as text, one line per entry.
func (l *Log) Snapshot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Subscribe registers fn to receive the full snapshot after every change.
// The returned function removes the subscription. fn is called outside the
// log's lock and may read the log.
func (l *Log) Subscribe(fn func(snapshot string)) (cancel func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, id)
		l.mu.Unlock()
	}
}

func (l *Log) snapshotLocked() string {
	var sb strings.Builder
	for _, line := range l.lines {
		sb.WriteString(line.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (l *Log) subscribersLocked() []func(string) {
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	// Deliver in subscription order.
	slices.Sort(ids)
	out := make([]func(string), 0, len(ids))
	for _, id := range ids {
		out = append(out, l.subs[id])
	}
	return out
}
