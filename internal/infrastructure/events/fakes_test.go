package events

import (
	"context"
	"errors"
	"sync"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// memoryBroker is an in-process queue set implementing Publisher and Subscriber.
type memoryBroker struct {
	mu         sync.Mutex
	queues     map[string]chan []byte
	published  map[string][][]byte
	publishErr error
	tags       uint64
	acks       *recordingAcknowledger
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{
		queues:    make(map[string]chan []byte),
		published: make(map[string][][]byte),
		acks:      &recordingAcknowledger{},
	}
}

func (b *memoryBroker) queue(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = make(chan []byte, 64)
		b.queues[name] = q
	}
	return q
}

func (b *memoryBroker) Publish(_ context.Context, queue string, body []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.mu.Lock()
	b.published[queue] = append(b.published[queue], body)
	b.mu.Unlock()

	b.queue(queue) <- body
	return nil
}

func (b *memoryBroker) bodies(queue string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.published[queue]...)
}

func (b *memoryBroker) ConsumeMessages(ctx context.Context, queue string, handler messaging.MessageHandler) error {
	q := b.queue(queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case body := <-q:
			b.mu.Lock()
			b.tags++
			tag := b.tags
			b.mu.Unlock()

			_ = handler(ctx, amqp.Delivery{Acknowledger: b.acks, DeliveryTag: tag, Body: body})
		}
	}
}

type ackCall struct {
	tag     uint64
	requeue bool
}

type recordingAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []ackCall
}

func (a *recordingAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *recordingAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, ackCall{tag: tag, requeue: requeue})
	return nil
}

func (a *recordingAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *recordingAcknowledger) counts() (acked, nacked int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked), len(a.nacked)
}

func delivery(ack amqp.Acknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type failingStore struct {
	domain.NotificationStore
}

var errStoreDown = errors.New("mongo: server selection timeout")

func (failingStore) Create(context.Context, *domain.Notification) (*domain.Notification, error) {
	return nil, errStoreDown
}

type recordingPusher struct {
	mu     sync.Mutex
	pushed []*domain.Notification
}

func (p *recordingPusher) Push(n *domain.Notification) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, n)
	return 1
}

type subscriberFunc func(ctx context.Context, queue string) error

func (f subscriberFunc) ConsumeMessages(ctx context.Context, queue string, _ messaging.MessageHandler) error {
	return f(ctx, queue)
}
