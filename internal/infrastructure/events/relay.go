package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/contracts"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	milestoneTitle  = "Song milestone"
	milestoneSender = "Encore"
	replyTitle      = "New reply"
)

// Reshaper turns a domain event body into a user-facing notification message.
type Reshaper func(body []byte) (*contracts.NotificationMessage, error)

func ReshapeSongVisit(body []byte) (*contracts.NotificationMessage, error) {
	var event domain.SongVisitEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrMalformedMessage, err)
	}
	if event.UserID <= 0 {
		return nil, fmt.Errorf("%w: song visit event without user", contracts.ErrMalformedMessage)
	}

	return &contracts.NotificationMessage{
		Title:        milestoneTitle,
		Sender:       milestoneSender,
		UserID:       event.UserID,
		Notification: fmt.Sprintf("%s reached %d plays", event.SongName, event.VisitCount),
		Relevance:    domain.RelevanceMedium,
	}, nil
}

func ReshapeCommentReply(body []byte) (*contracts.NotificationMessage, error) {
	var event domain.CommentReplyEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrMalformedMessage, err)
	}
	if event.RecipientID <= 0 || event.SenderName == "" || event.MessageContent == "" {
		return nil, fmt.Errorf("%w: incomplete comment reply event", contracts.ErrMalformedMessage)
	}

	return &contracts.NotificationMessage{
		Title:        replyTitle,
		Sender:       event.SenderName,
		UserID:       event.RecipientID,
		Notification: event.MessageContent,
		Relevance:    domain.RelevanceLow,
	}, nil
}

// Relay consumes a domain event queue and republishes each event to the
// notifications queue. A delivery is acked once the republish succeeds.
type Relay struct {
	subscriber Subscriber
	queue      string
	reshape    Reshaper
	out        *NotificationPublisher
	metrics    *metrics.Metrics
	logger     logging.Logger
}

func NewRelay(subscriber Subscriber, queue string, reshape Reshaper, out *NotificationPublisher, m *metrics.Metrics, logger logging.Logger) *Relay {
	return &Relay{
		subscriber: subscriber,
		queue:      queue,
		reshape:    reshape,
		out:        out,
		metrics:    m,
		logger:     logger,
	}
}

func NewSongVisitRelay(subscriber Subscriber, queue string, out *NotificationPublisher, m *metrics.Metrics, logger logging.Logger) *Relay {
	return NewRelay(subscriber, queue, ReshapeSongVisit, out, m, logger)
}

func NewCommentReplyRelay(subscriber Subscriber, queue string, out *NotificationPublisher, m *metrics.Metrics, logger logging.Logger) *Relay {
	return NewRelay(subscriber, queue, ReshapeCommentReply, out, m, logger)
}

func (r *Relay) Queue() string {
	return r.queue
}

func (r *Relay) Listen(ctx context.Context) error {
	return r.subscriber.ConsumeMessages(ctx, r.queue, r.Handle)
}

func (r *Relay) Handle(ctx context.Context, d amqp.Delivery) error {
	if d.Acknowledger == nil {
		return nil
	}

	start := time.Now()
	defer r.metrics.ObserveHandle(r.queue, start)

	fields := map[logging.ExtraKey]any{
		logging.Queue:       r.queue,
		logging.DeliveryTag: d.DeliveryTag,
		logging.MessageID:   d.MessageId,
	}

	msg, err := r.reshape(d.Body)
	if err != nil {
		return r.discard(d, "dropping unparseable event", err, fields)
	}

	if err := r.out.Publish(ctx, *msg); err != nil {
		return r.discard(d, "failed to relay event", err, fields)
	}

	if err := d.Ack(false); err != nil {
		return err
	}
	r.metrics.Relayed(r.queue, metrics.OutcomeRelayed)

	fields[logging.UserID] = msg.UserID
	r.logger.Debug(logging.Consumer, logging.Relay, "event relayed", fields)
	return nil
}

func (r *Relay) discard(d amqp.Delivery, msg string, cause error, fields map[logging.ExtraKey]any) error {
	fields[logging.ErrorMessage] = cause.Error()
	r.logger.Warn(logging.Consumer, logging.Relay, msg, fields)
	r.metrics.Relayed(r.queue, metrics.OutcomeRelayDiscarded)

	return d.Nack(false, false)
}

// SongDeletionListener acknowledges song deletion events. Removing stored
// files is owned by the storage service.
type SongDeletionListener struct {
	subscriber Subscriber
	metrics    *metrics.Metrics
	logger     logging.Logger
}

func NewSongDeletionListener(subscriber Subscriber, m *metrics.Metrics, logger logging.Logger) *SongDeletionListener {
	return &SongDeletionListener{subscriber: subscriber, metrics: m, logger: logger}
}

func (l *SongDeletionListener) Listen(ctx context.Context) error {
	return l.subscriber.ConsumeMessages(ctx, contracts.SongDeleteQueue, l.Handle)
}

func (l *SongDeletionListener) Handle(_ context.Context, d amqp.Delivery) error {
	if d.Acknowledger == nil {
		return nil
	}

	var event domain.SongDeletionEvent
	err := json.Unmarshal(d.Body, &event)
	if err == nil && event.IDSong <= 0 {
		err = errors.New("idSong must be positive")
	}
	if err != nil {
		l.logger.Warn(logging.Consumer, logging.Parse, "dropping malformed song deletion event", map[logging.ExtraKey]any{
			logging.Queue:        contracts.SongDeleteQueue,
			logging.DeliveryTag:  d.DeliveryTag,
			logging.ErrorMessage: err.Error(),
		})
		l.metrics.Relayed(contracts.SongDeleteQueue, metrics.OutcomeRelayDiscarded)
		return d.Nack(false, false)
	}

	if err := d.Ack(false); err != nil {
		return err
	}
	l.metrics.Relayed(contracts.SongDeleteQueue, metrics.OutcomeAcked)

	l.logger.Info(logging.Consumer, logging.Consume, "song deletion received", map[logging.ExtraKey]any{
		logging.SongID: event.IDSong,
	})
	return nil
}
