package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
)

const writeWait = 10 * time.Second

// terminalMessage carries the full log snapshot, the same payload the
// relay emits.
type terminalMessage struct {
	Output string `json:"output"`
}

// latest keeps only the newest snapshot; a slow client skips intermediate
// ones.
type latest struct {
	mu    sync.Mutex
	value string
	ready chan struct{}
}

func newLatest() *latest {
	return &latest{ready: make(chan struct{}, 1)}
}

func (l *latest) set(v string) {
	l.mu.Lock()
	l.value = v
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// handleTerminal streams log snapshots over a websocket, starting with the
// current one.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Terminal websocket upgrade failed.", "error", err)
		return
	}
	defer conn.Close()
	logger.Debug("Terminal client connected.", "remote_addr", r.RemoteAddr)

	snapshots := newLatest()
	snapshots.set(s.deps.Log.Snapshot())
	cancel := s.deps.Log.Subscribe(snapshots.set)
	defer cancel()

	// The client never sends; reading detects when it goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			logger.Debug("Terminal client disconnected.", "remote_addr", r.RemoteAddr)
			return
		case <-s.ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-snapshots.ready:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(terminalMessage{Output: snapshots.get()}); err != nil {
				logger.Debug("Terminal write failed.", "error", err)
				return
			}
		}
	}
}
