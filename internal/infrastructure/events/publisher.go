package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/contracts"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
)

// Publisher sends a JSON body to a durable queue. *messaging.RabbitMQ implements it.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type producer struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    logging.Logger
	now       func() time.Time
}

func (p *producer) publishJSON(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event for %s: %w", queue, err)
	}

	err = p.publisher.Publish(ctx, queue, body)
	p.metrics.Published(queue, err)
	if err != nil {
		p.logger.Error(logging.Producer, logging.Publish, "failed to publish event", map[logging.ExtraKey]any{
			logging.Queue:        queue,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	p.logger.Debug(logging.Producer, logging.Publish, "event published", map[logging.ExtraKey]any{
		logging.Queue: queue,
	})
	return nil
}

func (p *producer) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return p.now().UTC()
	}
	return t
}

type SongVisitPublisher struct {
	producer
	queue string
}

func NewSongVisitPublisher(publisher Publisher, queue string, m *metrics.Metrics, logger logging.Logger) *SongVisitPublisher {
	return &SongVisitPublisher{
		producer: producer{publisher: publisher, metrics: m, logger: logger, now: time.Now},
		queue:    queue,
	}
}

func (p *SongVisitPublisher) Publish(ctx context.Context, event domain.SongVisitEvent) error {
	event.Timestamp = p.stamp(event.Timestamp)
	return p.publishJSON(ctx, p.queue, event)
}

type CommentReplyPublisher struct {
	producer
	queue string
}

func NewCommentReplyPublisher(publisher Publisher, queue string, m *metrics.Metrics, logger logging.Logger) *CommentReplyPublisher {
	return &CommentReplyPublisher{
		producer: producer{publisher: publisher, metrics: m, logger: logger, now: time.Now},
		queue:    queue,
	}
}

func (p *CommentReplyPublisher) Publish(ctx context.Context, event domain.CommentReplyEvent) error {
	event.Timestamp = p.stamp(event.Timestamp)
	return p.publishJSON(ctx, p.queue, event)
}

type SongDeletionPublisher struct {
	producer
}

func NewSongDeletionPublisher(publisher Publisher, m *metrics.Metrics, logger logging.Logger) *SongDeletionPublisher {
	return &SongDeletionPublisher{
		producer: producer{publisher: publisher, metrics: m, logger: logger, now: time.Now},
	}
}

// Publish announces that idSong was deleted. idSong must be positive.
func (p *SongDeletionPublisher) Publish(ctx context.Context, idSong int64) error {
	if idSong <= 0 {
		return fmt.Errorf("%w: song id must be positive, got %d", domain.ErrInvalidArgument, idSong)
	}
	return p.publishJSON(ctx, contracts.SongDeleteQueue, domain.SongDeletionEvent{
		IDSong:    idSong,
		Timestamp: p.stamp(time.Time{}),
	})
}

type NotificationPublisher struct {
	producer
}

func NewNotificationPublisher(publisher Publisher, m *metrics.Metrics, logger logging.Logger) *NotificationPublisher {
	return &NotificationPublisher{
		producer: producer{publisher: publisher, metrics: m, logger: logger, now: time.Now},
	}
}

func (p *NotificationPublisher) Publish(ctx context.Context, msg contracts.NotificationMessage) error {
	return p.publishJSON(ctx, contracts.NotificationsQueue, msg)
}
