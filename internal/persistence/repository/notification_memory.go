package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryNotificationStore keeps notifications in a map. It mirrors the Mongo
// store, including ObjectID-shaped ids, and is safe for concurrent use.
type MemoryNotificationStore struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
	now   func() time.Time
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{
		items: make(map[string]domain.Notification),
		now:   time.Now,
	}
}

var _ domain.NotificationStore = (*MemoryNotificationStore)(nil)

func (s *MemoryNotificationStore) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *n
	stored.ID = primitive.NewObjectID().Hex()
	if stored.Relevance == "" {
		stored.Relevance = domain.RelevanceLow
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.items[stored.ID] = stored

	return &stored, nil
}

func (s *MemoryNotificationStore) FindByID(_ context.Context, id string) (*domain.Notification, error) {
	if _, err := parseID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	return &n, nil
}

func (s *MemoryNotificationStore) FindAll(_ context.Context, userID int64) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Notification, 0)
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryNotificationStore) UpdateByID(_ context.Context, id string, update domain.NotificationUpdate) (*domain.Notification, error) {
	if _, err := parseID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	if update.Title != nil {
		n.Title = *update.Title
	}
	if update.Notification != nil {
		n.Notification = *update.Notification
	}
	if update.Relevance != nil {
		n.Relevance = *update.Relevance
	}
	if update.Read != nil {
		n.Read = *update.Read
	}
	n.UpdatedAt = s.now().UTC()
	s.items[id] = n

	return &n, nil
}

func (s *MemoryNotificationStore) DeleteByID(_ context.Context, id string) error {
	if _, err := parseID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryNotificationStore) MarkAsRead(ctx context.Context, id string) (*domain.Notification, error) {
	read := true
	return s.UpdateByID(ctx, id, domain.NotificationUpdate{Read: &read})
}

// Len is the number of stored notifications.
func (s *MemoryNotificationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
