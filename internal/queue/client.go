package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/domain"
)

// Config holds broker connection parameters. URL wins over the
// host/user/password triple when both are set.
type Config struct {
	URL                string
	Host               string
	User               string
	Password           string
	QueueName          string
	DeadLetterExchange string
}

// AMQPURL assembles the broker URL from the configured parts.
func (c Config) AMQPURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:5672/", c.User, c.Password, c.Host)
}

// ReconnectPolicy bounds how long a lost broker connection is retried before
// the owner gives up. Fail-fast after a bounded number of attempts, not
// unbounded backoff.
type ReconnectPolicy struct {
	Attempts int
	Delay    time.Duration
}

// ErrReconnectExhausted is returned once every reconnect attempt has failed.
var ErrReconnectExhausted = errors.New("broker reconnect attempts exhausted")

// Handler processes one decoded job message. A nil return acknowledges the
// message; an error dead-letters it (or requeues a first delivery when no
// dead-letter exchange is configured to catch it).
type Handler func(ctx context.Context, job *domain.JobMessage) error

// Client owns one AMQP connection plus channel and the durable queue
// declared on them. Methods are called by a single owner goroutine; the
// mutex only guards reconnection swapping the handles.
type Client struct {
	cfg    Config
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker and declares the queue.
func Dial(cfg Config, logger *zap.Logger) (*Client, error) {
	c := &Client{cfg: cfg, logger: logger}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// DialWithRetry dials the broker, retrying per policy. Used at worker
// startup where the broker may not be up yet.
func DialWithRetry(cfg Config, policy ReconnectPolicy, logger *zap.Logger) (*Client, error) {
	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		client, err := Dial(cfg, logger)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warn("broker connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.Attempts),
			zap.Duration("delay", policy.Delay),
			zap.Error(err),
		)
		time.Sleep(policy.Delay)
	}
	return nil, fmt.Errorf("%w: %v", ErrReconnectExhausted, lastErr)
}

func (c *Client) connect() error {
	conn, err := amqp.Dial(c.cfg.AMQPURL())
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("opening channel: %w", err)
	}

	var args amqp.Table
	if c.cfg.DeadLetterExchange != "" {
		args = amqp.Table{"x-dead-letter-exchange": c.cfg.DeadLetterExchange}
	}
	// Declaring an existing queue with matching properties is a no-op.
	if _, err := ch.QueueDeclare(c.cfg.QueueName, true, false, false, false, args); err != nil {
		conn.Close()
		return fmt.Errorf("declaring queue %q: %w", c.cfg.QueueName, err)
	}

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()
	return nil
}

// Reconnect drops the current handles and dials fresh ones.
func (c *Client) Reconnect() error {
	c.Close()
	return c.connect()
}

// Close shuts the broker connection down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
	c.conn, c.ch = nil, nil
}

// Connected reports whether the broker connection is up. Readiness checks
// use it.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) channel() *amqp.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch
}

// Publish enqueues one job message on the default exchange with the queue
// name as routing key. A failed publish triggers exactly one
// reconnect-and-retry before the error is surfaced.
func (c *Client) Publish(ctx context.Context, job *domain.JobMessage) error {
	body, err := job.Encode()
	if err != nil {
		return fmt.Errorf("encoding job message: %w", err)
	}

	if err := c.publish(ctx, body); err != nil {
		c.logger.Warn("publish failed, reconnecting", zap.Error(err))
		if err := c.Reconnect(); err != nil {
			return err
		}
		return c.publish(ctx, body)
	}
	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ch := c.channel()
	if ch == nil {
		return amqp.ErrClosed
	}
	return ch.PublishWithContext(ctx, "", c.cfg.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers queued messages to handler one at a time until the
// delivery channel closes or ctx is cancelled. It returns nil when the
// connection is lost so the caller can decide whether to reconnect, and the
// context error on cancellation.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	ch := c.channel()
	if ch == nil {
		return amqp.ErrClosed
	}
	// One unacknowledged message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("setting prefetch: %w", err)
	}
	deliveries, err := ch.Consume(c.cfg.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("starting consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

// handleDelivery dispatches one delivery and settles it: acknowledge only on
// success. A failed first delivery is requeued once when no dead-letter
// exchange would catch it; a redelivered failure is dead-lettered so a
// poison message cannot loop forever.
func (c *Client) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	job, err := domain.DecodeJobMessage(d.Body)
	if err != nil {
		// A message that cannot decode will never succeed.
		c.logger.Error("discarding undecodable message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, job); err != nil {
		requeue := c.cfg.DeadLetterExchange == "" && !d.Redelivered
		c.logger.Error("job processing failed",
			zap.Int("pr_number", job.PRNumber),
			zap.String("repo", job.Repository.FullName),
			zap.Bool("requeued", requeue),
			zap.Error(err),
		)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
