package events

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/contracts"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/messaging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultLookupTimeout = 3 * time.Second

// Subscriber runs handler for every delivery of queue. *messaging.RabbitMQ implements it.
type Subscriber interface {
	ConsumeMessages(ctx context.Context, queue string, handler messaging.MessageHandler) error
}

// Pusher forwards a stored notification to live clients.
type Pusher interface {
	Push(n *domain.Notification) int
}

type NotificationConsumer struct {
	subscriber    Subscriber
	users         domain.UserRepository
	store         domain.NotificationStore
	pusher        Pusher
	metrics       *metrics.Metrics
	logger        logging.Logger
	lookupTimeout time.Duration
	now           func() time.Time
}

type ConsumerOption func(*NotificationConsumer)

func WithPusher(p Pusher) ConsumerOption {
	return func(c *NotificationConsumer) {
		c.pusher = p
	}
}

func WithLookupTimeout(d time.Duration) ConsumerOption {
	return func(c *NotificationConsumer) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

func NewNotificationConsumer(
	subscriber Subscriber,
	users domain.UserRepository,
	store domain.NotificationStore,
	m *metrics.Metrics,
	logger logging.Logger,
	opts ...ConsumerOption,
) *NotificationConsumer {
	c := &NotificationConsumer{
		subscriber:    subscriber,
		users:         users,
		store:         store,
		metrics:       m,
		logger:        logger,
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Listen consumes the notifications queue until ctx is cancelled or the
// broker ends the subscription.
func (c *NotificationConsumer) Listen(ctx context.Context) error {
	return c.subscriber.ConsumeMessages(ctx, contracts.NotificationsQueue, c.Handle)
}

// Handle turns one delivery into a stored notification. The delivery is
// acked only after the insert succeeds; every failure is nacked without
// requeue.
func (c *NotificationConsumer) Handle(ctx context.Context, d amqp.Delivery) error {
	// A zero delivery carries no acknowledger and cannot be settled.
	if d.Acknowledger == nil {
		c.metrics.Consumed(metrics.OutcomeEmptyDelivery)
		return nil
	}

	start := time.Now()
	defer c.metrics.ObserveHandle(contracts.NotificationsQueue, start)

	fields := map[logging.ExtraKey]any{
		logging.Queue:       contracts.NotificationsQueue,
		logging.DeliveryTag: d.DeliveryTag,
		logging.Redelivered: d.Redelivered,
		logging.MessageID:   d.MessageId,
	}

	msg, err := contracts.DecodeNotificationMessage(d.Body)
	if err != nil {
		if errors.Is(err, contracts.ErrMalformedMessage) {
			return c.drop(d, metrics.OutcomeParseError, logging.Parse, "dropping unparseable notification", err, fields)
		}
		return c.drop(d, metrics.OutcomeInvalid, logging.Validate, "dropping invalid notification", err, fields)
	}
	fields[logging.UserID] = msg.UserID

	user, err := c.lookup(ctx, msg.UserID)
	if err != nil {
		return c.drop(d, metrics.OutcomeEnrichError, logging.Enrich, "dropping notification for unknown user", err, fields)
	}

	now := c.now().UTC()
	stored, err := c.store.Create(ctx, &domain.Notification{
		Title:        msg.Title,
		Sender:       msg.Sender,
		UserID:       msg.UserID,
		User:         user.NameUser,
		Notification: msg.Notification,
		Relevance:    msg.Relevance,
		Read:         false,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return c.drop(d, metrics.OutcomePersistError, logging.Persist, "dropping notification that could not be stored", err, fields)
	}

	if err := d.Ack(false); err != nil {
		return err
	}
	c.metrics.Consumed(metrics.OutcomeAcked)

	fields[logging.NotificationID] = stored.ID
	c.logger.Info(logging.Consumer, logging.Persist, "notification stored", fields)

	if c.pusher != nil {
		c.pusher.Push(stored)
	}
	return nil
}

func (c *NotificationConsumer) lookup(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (c *NotificationConsumer) drop(
	d amqp.Delivery,
	outcome string,
	sub logging.SubCategory,
	msg string,
	cause error,
	fields map[logging.ExtraKey]any,
) error {
	fields[logging.ErrorMessage] = cause.Error()
	c.logger.Warn(logging.Consumer, sub, msg, fields)
	c.metrics.Consumed(outcome)

	return d.Nack(false, false)
}
