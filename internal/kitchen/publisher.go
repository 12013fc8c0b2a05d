// Package kitchen hands completed kiosk orders to the kitchen over RabbitMQ.
package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"gukbap/kiosk/internal/ledger"
	"gukbap/kiosk/internal/logging"
)

type ItemMsg struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int    `json:"price"`
}

type OrderMessage struct {
	OrderNumber string    `json:"order_number"`
	KioskID     string    `json:"kiosk_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Source      string    `json:"source"` // "voice" | "touch"
	Items       []ItemMsg `json:"items"`
	TotalAmount int       `json:"total_amount"`
	PlacedAt    time.Time `json:"placed_at"`
}

// NewOrderMessage builds the ticket for the current ledger lines.
func NewOrderMessage(kioskID, sessionID, source string, lines []ledger.Line) OrderMessage {
	msg := OrderMessage{
		OrderNumber: uuid.New().String(),
		KioskID:     kioskID,
		SessionID:   sessionID,
		Source:      source,
		PlacedAt:    time.Now().UTC(),
	}
	for _, ln := range lines {
		msg.Items = append(msg.Items, ItemMsg{Name: ln.Item.Name, Quantity: ln.Quantity, Price: ln.Item.Price})
		msg.TotalAmount += ln.Subtotal()
	}
	return msg
}

type Publisher interface {
	Publish(ctx context.Context, msg OrderMessage) error
	Ping() error
	Close()
}

// Nop is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, msg OrderMessage) error {
	logging.For("kitchen").Info("kitchen hand-off skipped, no broker configured", "order_number", msg.OrderNumber, "total", msg.TotalAmount)
	return nil
}
func (Nop) Ping() error { return nil }
func (Nop) Close()      {}

// confirmation is the broker's answer to a single publish.
type confirmation interface {
	Done() <-chan struct{}
	Acked() bool
}

type publishFunc func(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)

type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	publish  publishFunc
}

// Dial connects, declares the topic exchange and enables publisher confirms.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("kitchen dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen declare %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("kitchen confirm mode: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, publish: deferredPublish(ch)}, nil
}

// deferredPublish ties every message to its own confirmation, so a confirm
// that arrives after its caller gave up is never read by the next publish.
func deferredPublish(ch *amqp.Channel) publishFunc {
	return func(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			return nil, errors.New("channel not in confirm mode")
		}
		return dc, nil
	}
}

// RoutingKey follows kitchen.<source>.<kiosk>.
func RoutingKey(msg OrderMessage) string {
	return fmt.Sprintf("kitchen.%s.%s", msg.Source, msg.KioskID)
}

// Publish sends the ticket and waits for the broker to confirm it.
func (p *AMQPPublisher) Publish(ctx context.Context, msg OrderMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	conf, err := p.publish(ctx, p.exchange, RoutingKey(msg), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.PlacedAt,
		ContentType:  "application/json",
		MessageId:    msg.OrderNumber,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("kitchen publish: %w", err)
	}
	select {
	case <-conf.Done():
		if !conf.Acked() {
			return fmt.Errorf("kitchen publish %s: nacked by broker", msg.OrderNumber)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kitchen publish %s: awaiting confirm: %w", msg.OrderNumber, ctx.Err())
	}
}

func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
