package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Zahidur-Rahman/Dev-Guardian/internal/queue"
)

// Consumer drives the consume loop through its connection lifecycle.
// Transient broker outages are retried within the reconnect budget;
// anything unexpected is fatal rather than masked by retries, so the
// process exits instead of looping on a bug.
type Consumer struct {
	queue     *queue.Client
	reconnect queue.ReconnectPolicy
	handler   queue.Handler
	logger    *zap.Logger
}

func NewConsumer(q *queue.Client, reconnect queue.ReconnectPolicy, handler queue.Handler, logger *zap.Logger) *Consumer {
	return &Consumer{
		queue:     q,
		reconnect: reconnect,
		handler:   handler,
		logger:    logger,
	}
}

// Run blocks consuming messages until ctx is cancelled (returns nil), the
// reconnect budget is exhausted, or a non-connection error occurs.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.queue.Consume(ctx, c.handler)
		switch {
		case err == nil, errors.Is(err, amqp.ErrClosed):
			// Connection lost mid-consume; try to get it back.
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("consumer terminated: %w", err)
		}

		if err := c.redial(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (c *Consumer) redial(ctx context.Context) error {
	for attempt := 1; attempt <= c.reconnect.Attempts; attempt++ {
		c.logger.Warn("broker connection lost, reconnecting",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.reconnect.Attempts),
			zap.Duration("delay", c.reconnect.Delay),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnect.Delay):
		}
		if err := c.queue.Reconnect(); err != nil {
			c.logger.Warn("reconnect failed", zap.Error(err))
			continue
		}
		c.logger.Info("reconnected to broker")
		return nil
	}
	return queue.ErrReconnectExhausted
}
