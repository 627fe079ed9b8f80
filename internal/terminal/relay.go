package terminal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// OutputEvent is the socket.io event a relay emits for every snapshot.
const OutputEvent = "terminal:output"

const connectTimeout = 15 * time.Second

// Relay forwards log snapshots to a remote socket.io viewer.
type Relay struct {
	io  *socket.Socket
	url string
}

// DialRelay connects to the socket.io server at rawURL. The URL path is
// the engine.io path; namespace selects the socket.io namespace.
func DialRelay(ctx context.Context, rawURL, namespace string) (*Relay, error) {
	logger := ctxlog.FromContext(ctx).With("relay_url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("relay URL %q must be absolute", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = errors.New("connect_error")
		}
		connected <- err
	})

	logger.Debug("Connecting terminal relay...")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	logger.Info("Terminal relay connected.", "sid", io.Id())
	return &Relay{io: io, url: rawURL}, nil
}

// Render emits snapshot to the viewer. Snapshots produced while the
// connection is down are dropped; the next one carries the full log.
func (r *Relay) Render(snapshot string) {
	if !r.io.Connected() {
		return
	}
	r.io.Emit(OutputEvent, map[string]any{"output": snapshot})
}

// Close disconnects from the viewer.
func (r *Relay) Close() error {
	r.io.Disconnect()
	return nil
}
