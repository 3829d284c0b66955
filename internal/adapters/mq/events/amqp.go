package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/okian/exambot/pkg/metrics"
)

const contentTypeJSON = "application/json"

// Channel is the part of an AMQP channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes JSON events to a topic exchange keyed by event type.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       Channel
	conn     *amqp.Connection
	exchange string
}

// NewAMQPPublisher wraps an open channel.
func NewAMQPPublisher(ch Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

// Dial connects to the broker and declares a durable topic exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBroker, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %w", ErrBroker, err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: declare %q: %w", ErrBroker, exchange, err)
	}
	p := NewAMQPPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}
	msg := amqp.Publishing{
		ContentType:  contentTypeJSON,
		MessageId:    uuid.NewString(),
		Timestamp:    e.At,
		Type:         e.Type,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, msg); err != nil {
		metrics.RecordErrorByComponent("events", "publish")
		return fmt.Errorf("%w: publish %s: %w", ErrBroker, e.Type, err)
	}
	return nil
}

// Close closes the channel and, when dialed, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
