package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/hilthontt/encore/internal/infrastructure/logging"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
)

// MessageHandler processes one delivery. The handler owns the ack/nack
// decision; a returned error is only logged.
type MessageHandler func(ctx context.Context, msg amqp.Delivery) error

// ConsumeMessages subscribes to queue with manual acknowledgement and runs
// handler for every delivery on its own goroutine, at most Concurrency at a
// time. It blocks until ctx is cancelled or the broker closes the
// subscription, then waits for in-flight handlers.
func (r *RabbitMQ) ConsumeMessages(ctx context.Context, queue string, handler MessageHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	ch, err := r.Channel(ctx)
	if err != nil {
		return err
	}

	if err := r.DeclareQueue(ch, queue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		queue, // queue
		"",    // consumer tag, generated by the broker
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	r.logger.Info(logging.RabbitMQ, logging.Consume, "consumer subscribed", map[logging.ExtraKey]any{
		logging.Queue: queue,
	})

	concurrency := r.opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	defer wg.Wait()

	// In-flight handlers finish even when the subscription is being torn down.
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: %s", ErrConsumerCancelled, queue)
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()

				msgCtx := otel.GetTextMapPropagator().Extract(handlerCtx, headerCarrier(d.Headers))
				if err := handler(msgCtx, d); err != nil {
					r.logger.Warn(logging.RabbitMQ, logging.Consume, "delivery handler failed", map[logging.ExtraKey]any{
						logging.Queue:        queue,
						logging.DeliveryTag:  d.DeliveryTag,
						logging.ErrorMessage: err.Error(),
					})
				}
			}(d)
		}
	}
}
