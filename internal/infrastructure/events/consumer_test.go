package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/contracts"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
	"github.com/hilthontt/encore/internal/persistence/repository"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validBody = `{"title":"New reply","sender":"bob","user_id":7,"notification":"nice track","relevance":"high"}`

type consumerFixture struct {
	users    *mockUserRepository
	store    *repository.MemoryNotificationStore
	metrics  *metrics.Metrics
	pusher   *recordingPusher
	consumer *NotificationConsumer
}

func newConsumerFixture(sub Subscriber) *consumerFixture {
	f := &consumerFixture{
		users:   &mockUserRepository{},
		store:   repository.NewMemoryNotificationStore(),
		metrics: metrics.New(),
		pusher:  &recordingPusher{},
	}
	f.consumer = NewNotificationConsumer(sub, f.users, f.store, f.metrics, logging.NewNop(),
		WithPusher(f.pusher),
		WithLookupTimeout(time.Second),
	)
	return f
}

func (f *consumerFixture) consumed(outcome string) float64 {
	return testutil.ToFloat64(f.metrics.NotificationsConsumed.WithLabelValues(outcome))
}

func TestHandleStoresEnrichedNotificationThenAcks(t *testing.T) {
	f := newConsumerFixture(nil)
	f.users.On("GetByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, NameUser: "ana"}, nil)
	ack := &recordingAcknowledger{}

	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, validBody)))

	acked, nacked := ack.counts()
	assert.Equal(t, 1, acked)
	assert.Zero(t, nacked)

	all, err := f.store.FindAll(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ana", all[0].User)
	assert.Equal(t, "bob", all[0].Sender)
	assert.Equal(t, "New reply", all[0].Title)
	assert.Equal(t, domain.RelevanceHigh, all[0].Relevance)
	assert.False(t, all[0].Read)

	require.Len(t, f.pusher.pushed, 1)
	assert.Equal(t, all[0].ID, f.pusher.pushed[0].ID)
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeAcked))
}

func TestHandleMalformedJSONIsNackedWithoutRequeue(t *testing.T) {
	f := newConsumerFixture(nil)
	ack := &recordingAcknowledger{}

	assert.NotPanics(t, func() {
		_ = f.consumer.Handle(context.Background(), delivery(ack, `{"title": "oops"`))
	})

	require.Len(t, ack.nacked, 1)
	assert.False(t, ack.nacked[0].requeue)
	assert.Empty(t, ack.acked)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeParseError))
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHandleEmptyBodyIsAParseFailure(t *testing.T) {
	f := newConsumerFixture(nil)
	ack := &recordingAcknowledger{}

	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, "")))

	require.Len(t, ack.nacked, 1)
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeParseError))
}

func TestHandleNonIntegerUserIDFailsValidation(t *testing.T) {
	f := newConsumerFixture(nil)
	ack := &recordingAcknowledger{}

	body := `{"title":"t","sender":"s","user_id":"abc","notification":"n"}`
	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, body)))

	require.Len(t, ack.nacked, 1)
	assert.False(t, ack.nacked[0].requeue)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeInvalid))
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHandleUnknownUserIsNacked(t *testing.T) {
	f := newConsumerFixture(nil)
	f.users.On("GetByID", mock.Anything, int64(7)).Return(nil, domain.ErrUserNotFound)
	ack := &recordingAcknowledger{}

	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, validBody)))

	require.Len(t, ack.nacked, 1)
	assert.False(t, ack.nacked[0].requeue)
	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.pusher.pushed)
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeEnrichError))
}

func TestHandleNilUserIsNacked(t *testing.T) {
	f := newConsumerFixture(nil)
	f.users.On("GetByID", mock.Anything, int64(7)).Return(nil, nil)
	ack := &recordingAcknowledger{}

	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, validBody)))
	assert.Len(t, ack.nacked, 1)
}

func TestHandleLookupHonoursTimeout(t *testing.T) {
	f := newConsumerFixture(nil)
	f.consumer.lookupTimeout = 10 * time.Millisecond
	f.users.On("GetByID", mock.Anything, int64(7)).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)
	ack := &recordingAcknowledger{}

	require.NoError(t, f.consumer.Handle(context.Background(), delivery(ack, validBody)))
	assert.Len(t, ack.nacked, 1)
}

func TestHandlePersistFailureIsNacked(t *testing.T) {
	users := &mockUserRepository{}
	users.On("GetByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, NameUser: "ana"}, nil)
	m := metrics.New()
	pusher := &recordingPusher{}
	c := NewNotificationConsumer(nil, users, failingStore{}, m, logging.NewNop(), WithPusher(pusher))
	ack := &recordingAcknowledger{}

	require.NoError(t, c.Handle(context.Background(), delivery(ack, validBody)))

	require.Len(t, ack.nacked, 1)
	assert.False(t, ack.nacked[0].requeue)
	assert.Empty(t, ack.acked)
	assert.Empty(t, pusher.pushed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsConsumed.WithLabelValues(metrics.OutcomePersistError)))
}

func TestHandleZeroDeliveryTakesNoAction(t *testing.T) {
	f := newConsumerFixture(nil)

	assert.NoError(t, f.consumer.Handle(context.Background(), amqp.Delivery{}))
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1.0, f.consumed(metrics.OutcomeEmptyDelivery))
}

func TestNotificationRoundTripThroughBroker(t *testing.T) {
	broker := newMemoryBroker()
	f := newConsumerFixture(broker)
	f.users.On("GetByID", mock.Anything, int64(7)).Return(&domain.User{ID: 7, NameUser: "ana"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.consumer.Listen(ctx) }()

	pub := NewNotificationPublisher(broker, metrics.New(), logging.NewNop())
	require.NoError(t, pub.Publish(ctx, contracts.NotificationMessage{
		Title:        "Song milestone",
		Sender:       "Encore",
		UserID:       7,
		Notification: "Intro reached 10 plays",
	}))

	require.Eventually(t, func() bool { return f.store.Len() == 1 }, time.Second, 5*time.Millisecond)

	all, err := f.store.FindAll(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "ana", all[0].User)
	assert.Equal(t, domain.RelevanceLow, all[0].Relevance)

	acked, nacked := broker.acks.counts()
	assert.Equal(t, 1, acked)
	assert.Zero(t, nacked)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestListenSurfacesSubscriptionErrors(t *testing.T) {
	cause := errors.New("consumer cancelled by broker")
	c := NewNotificationConsumer(subscriberFunc(func(context.Context, string) error { return cause }),
		&mockUserRepository{}, repository.NewMemoryNotificationStore(), metrics.New(), logging.NewNop())

	assert.ErrorIs(t, c.Listen(context.Background()), cause)
}
