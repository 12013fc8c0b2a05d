package capture

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	ws "nhooyr.io/websocket"
)

var ErrNotConnected = errors.New("capture service not connected")

// Registry keeps at most one capture service connection for the kiosk.
type Registry struct {
	mu   sync.Mutex
	conn *ws.Conn
}

func NewRegistry() *Registry { return &Registry{} }

// Replace installs c and closes the previous connection if present.
func (r *Registry) Replace(c *ws.Conn) (prevClosed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close(ws.StatusNormalClosure, "replaced")
		prevClosed = true
	}
	r.conn = c
	return
}

// Remove clears c if it is still the registered connection.
func (r *Registry) Remove(c *ws.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != c {
		return false
	}
	r.conn = nil
	return true
}

func (r *Registry) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// SendJSON writes v to the capture service.
func (r *Registry) SendJSON(ctx context.Context, v any) error {
	r.mu.Lock()
	c := r.conn
	r.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, ws.MessageText, b)
}
