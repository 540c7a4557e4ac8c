package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/redis/go-redis/v9"
)

const (
	userKeyPrefix  = "encore:user:"
	DefaultUserTTL = 10 * time.Minute
)

// UserRepository is a cache-aside decorator over a domain.UserRepository.
// Redis failures fall through to the wrapped repository.
type UserRepository struct {
	next   domain.UserRepository
	redis  *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

func NewUserRepository(next domain.UserRepository, client *redis.Client, ttl time.Duration, logger logging.Logger) *UserRepository {
	if ttl <= 0 {
		ttl = DefaultUserTTL
	}
	return &UserRepository{next: next, redis: client, ttl: ttl, logger: logger}
}

var _ domain.UserRepository = (*UserRepository)(nil)

func userKey(id int64) string {
	return userKeyPrefix + strconv.FormatInt(id, 10)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	key := userKey(id)

	data, err := r.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var user domain.User
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
		r.logger.Warn(logging.Redis, logging.Select, "discarding undecodable cached user", map[logging.ExtraKey]any{
			logging.UserID: id,
		})
	case !errors.Is(err, redis.Nil):
		r.logger.Warn(logging.Redis, logging.Select, "user cache unavailable", map[logging.ExtraKey]any{
			logging.UserID:       id,
			logging.ErrorMessage: err.Error(),
		})
	}

	user, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn(logging.Redis, logging.Insert, "failed to cache user", map[logging.ExtraKey]any{
				logging.UserID:       id,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
	return user, nil
}

// Invalidate drops the cached entry for id.
func (r *UserRepository) Invalidate(ctx context.Context, id int64) error {
	return r.redis.Del(ctx, userKey(id)).Err()
}
