package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gukbap/kiosk/internal/logging"
)

// Message is the envelope exchanged with the capture service. Inbound types:
// listening, interim, final, error. Outbound: start_listening, stop_listening.
type Message struct {
	Type        string `json:"type"`
	TsMs        int64  `json:"ts_ms"`
	Seq         int64  `json:"seq,omitempty"`
	CommandID   string `json:"command_id,omitempty"`
	UtteranceID string `json:"utterance_id,omitempty"`
	Text        string `json:"text,omitempty"`
	Listening   *bool  `json:"listening,omitempty"`
}

const (
	seenCap = 64
	// a start_listening the service never answers stops blocking retries
	// after this long
	startPending = 5 * time.Second
)

// Channel is the voice capability surface the conversation drives: listening
// status, start/stop and a single utterance handler. It holds no dialogue
// logic.
type Channel struct {
	reg *Registry

	mu          sync.Mutex
	listening   bool
	starting    bool
	startedAt   time.Time
	pendingFor  time.Duration
	seen        []string
	onUtterance func(text string)
	onListening func(listening bool)
}

func NewChannel(reg *Registry) *Channel { return &Channel{reg: reg, pendingFor: startPending} }

// OnUtterance registers the handler, replacing any previous one.
func (c *Channel) OnUtterance(fn func(text string)) {
	c.mu.Lock()
	c.onUtterance = fn
	c.mu.Unlock()
}

func (c *Channel) OnListening(fn func(listening bool)) {
	c.mu.Lock()
	c.onListening = fn
	c.mu.Unlock()
}

// Listening is the status last reported by the capture service.
func (c *Channel) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Start asks the capture service to listen. No-op while listening or while a
// recent start is still unanswered.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.listening || (c.starting && time.Since(c.startedAt) < c.pendingFor) {
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.startedAt = time.Now()
	c.mu.Unlock()

	if err := c.send(ctx, "start_listening"); err != nil {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// Stop is a no-op when neither listening nor starting.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.listening && !c.starting {
		c.mu.Unlock()
		return nil
	}
	c.starting = false
	c.mu.Unlock()
	return c.send(ctx, "stop_listening")
}

func (c *Channel) send(ctx context.Context, typ string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := c.reg.SendJSON(ctx, Message{Type: typ, TsMs: time.Now().UnixMilli(), CommandID: uuid.New().String()})
	if errors.Is(err, ErrNotConnected) {
		logging.For("capture").Debug("command not delivered", "type", typ, "err", err)
		return err
	}
	if err != nil {
		logging.For("capture").Warn("command not delivered", "type", typ, "err", err)
		return err
	}
	metricCommands.WithLabelValues(typ).Inc()
	return nil
}

// Dispatch applies one inbound message from the capture service.
func (c *Channel) Dispatch(msg Message) {
	switch msg.Type {
	case "listening":
		if msg.Listening != nil {
			c.setListening(*msg.Listening)
		}
	case "final":
		c.deliver(msg)
	case "interim":
		logging.For("capture").Debug("interim transcript", "text", msg.Text)
	case "error":
		logging.For("capture").Warn("capture service error", "text", msg.Text)
	default:
		// unknown types are ignored for forward compatibility
	}
}

// Reset forgets listening state, e.g. after the capture service disconnects.
func (c *Channel) Reset() { c.setListening(false) }

// Connected marks a fresh capture connection as not listening and always
// notifies the listener, so a waiting conversation re-arms the microphone.
func (c *Channel) Connected() {
	c.mu.Lock()
	c.starting = false
	c.listening = false
	fn := c.onListening
	c.mu.Unlock()
	if fn != nil {
		fn(false)
	}
}

func (c *Channel) setListening(v bool) {
	c.mu.Lock()
	c.starting = false
	changed := c.listening != v
	c.listening = v
	fn := c.onListening
	c.mu.Unlock()
	if changed && fn != nil {
		fn(v)
	}
}

func (c *Channel) deliver(msg Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	c.mu.Lock()
	if msg.UtteranceID != "" {
		for _, id := range c.seen {
			if id == msg.UtteranceID {
				c.mu.Unlock()
				metricDuplicateUtterances.Inc()
				return
			}
		}
		c.seen = append(c.seen, msg.UtteranceID)
		if len(c.seen) > seenCap {
			c.seen = c.seen[len(c.seen)-seenCap:]
		}
	}
	fn := c.onUtterance
	c.mu.Unlock()
	metricUtterances.Inc()
	if fn != nil {
		fn(text)
	}
}
