package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config describes the broker connection and the exchange events are published to.
type Config struct {
	URL            string
	Exchange       string
	ConfirmTimeout time.Duration
}

// Publisher publishes JSON messages to a durable topic exchange with publisher confirms.
type Publisher struct {
	cfg  Config
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
}

// PublishOptions tune a single publish.
type PublishOptions struct {
	Headers   amqp.Table
	MessageID string
}

// PublishOption mutates PublishOptions.
type PublishOption func(*PublishOptions)

// WithHeaders attaches AMQP headers.
func WithHeaders(headers amqp.Table) PublishOption {
	return func(o *PublishOptions) { o.Headers = headers }
}

// WithMessageID sets the message id used for consumer-side deduplication.
func WithMessageID(id string) PublishOption {
	return func(o *PublishOptions) { o.MessageID = id }
}

// Dial connects, opens a confirm-mode channel and declares the exchange.
func Dial(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 10 * time.Second
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Publisher{cfg: cfg, conn: conn, ch: ch}, nil
}

// Publish sends body under routingKey and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, options ...PublishOption) error {
	opts := PublishOptions{}
	for _, option := range options {
		option(&opts)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      opts.Headers,
		MessageId:    opts.MessageID,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
	defer cancel()

	acked, err := confirm.WaitContext(waitCtx)
	if err != nil {
		return fmt.Errorf("wait for confirmation: %w", err)
	}
	if !acked {
		return errors.New("message rejected by broker")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
