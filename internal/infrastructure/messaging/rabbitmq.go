package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ owns the single broker connection and channel of the process.
// Producers and consumers borrow the channel and never close it.
type RabbitMQ struct {
	opts   *Options
	dial   DialFunc
	logger logging.Logger

	mu   sync.Mutex
	conn Connection
	ch   Channel

	pubMu sync.Mutex
}

type Option func(*RabbitMQ)

func WithDialer(dial DialFunc) Option {
	return func(r *RabbitMQ) {
		r.dial = dial
	}
}

func NewRabbitMQ(opts *Options, logger logging.Logger, options ...Option) *RabbitMQ {
	if opts == nil {
		opts = NewOptions()
	}

	r := &RabbitMQ{
		opts:   opts,
		dial:   dialAMQP,
		logger: logger,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Channel returns the open channel, dialing a new connection and channel
// when either is missing or closed. It is safe for concurrent use.
func (r *RabbitMQ) Channel(ctx context.Context) (Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.healthyLocked() {
		return r.ch, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.conn == nil || r.conn.IsClosed() {
		conn, err := r.dial(r.opts.URL(), amqp.Config{
			Heartbeat: r.opts.Heartbeat,
			Dial:      amqp.DefaultDial(r.opts.DialTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
		}
		r.conn = conn
		r.ch = nil

		r.logger.Info(logging.RabbitMQ, logging.Connect, "connected to broker", map[logging.ExtraKey]any{
			logging.HostIp: r.opts.Redacted(),
		})
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open channel: %w", ErrBrokerUnavailable, err)
	}

	if r.opts.Prefetch > 0 {
		if err := ch.Qos(r.opts.Prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%w: failed to set prefetch: %w", ErrBrokerUnavailable, err)
		}
	}

	r.ch = ch
	return ch, nil
}

func (r *RabbitMQ) healthyLocked() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

// Connect acquires a channel, retrying with a fixed delay up to
// RetryAttempts times before giving up with ErrBrokerUnreachable.
func (r *RabbitMQ) Connect(ctx context.Context) error {
	var attempt uint

	_, err := backoff.Retry(ctx, func() (Channel, error) {
		attempt++
		ch, err := r.Channel(ctx)
		if err != nil {
			r.logger.Warn(logging.RabbitMQ, logging.Connect, "broker connection attempt failed", map[logging.ExtraKey]any{
				logging.Attempt:      attempt,
				logging.ErrorMessage: err.Error(),
			})
		}
		return ch, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(r.opts.RetryDelay)),
		backoff.WithMaxTries(r.opts.RetryAttempts),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w after %d attempts: %w", ErrBrokerUnreachable, attempt, err)
	}
	return nil
}

// Healthcheck reports whether a channel can be acquired.
func (r *RabbitMQ) Healthcheck(ctx context.Context) error {
	_, err := r.Channel(ctx)
	return err
}

// DeclareQueue declares a durable queue. Declaring is idempotent.
func (r *RabbitMQ) DeclareQueue(ch Channel, name string) error {
	if name == "" {
		return ErrInvalidQueueName
	}

	var args amqp.Table
	if r.opts.DeadLetterExchange != "" {
		args = amqp.Table{"x-dead-letter-exchange": r.opts.DeadLetterExchange}
	}

	if _, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		args,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// Close shuts down the channel, then the connection. Either may already be closed.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error

	if r.ch != nil {
		if !r.ch.IsClosed() {
			if err := r.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
			}
		}
		r.ch = nil
	}

	if r.conn != nil {
		if !r.conn.IsClosed() {
			if err := r.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
			}
		}
		r.conn = nil
	}

	return errors.Join(errs...)
}
