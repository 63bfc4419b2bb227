package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mudler/xlog"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout   = 2 * time.Second
	redialBackoff = 15 * time.Second
)

var errBrokerBackoff = errors.New("broker recently unreachable, waiting before redial")

// AMQPPublisher writes events to a durable queue on the default exchange.
// The connection is opened lazily. After a failed dial no new dial is tried
// until redialBackoff has passed, so an unreachable broker costs a chat at
// most one dialTimeout.
type AMQPPublisher struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
	dial    func(url string) (*amqp.Connection, error)
	now     func() time.Time
}

func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, dial: dialBroker, now: time.Now}
}

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if p.now().Before(p.retryAt) {
			return nil, errBrokerBackoff
		}
		conn, err := p.dial(p.url)
		if err != nil {
			p.retryAt = p.now().Add(redialBackoff)
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
		p.retryAt = time.Time{}
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) PublishQueryLogged(ctx context.Context, ev QueryLogged) {
	body, err := json.Marshal(ev)
	if err != nil {
		xlog.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if errors.Is(err, errBrokerBackoff) {
		xlog.Debug("Event dropped", "queue", p.queue, "query_id", ev.QueryID)
		return
	}
	if err != nil {
		xlog.Warn("Event broker unavailable", "queue", p.queue, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		xlog.Warn("Failed to publish event", "queue", p.queue, "error", err)
		_ = ch.Close()
		p.ch = nil
	}
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
