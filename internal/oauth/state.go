package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fxrumble/identity-service/internal/utils"
	"github.com/fxrumble/identity-service/pkg/database"
)

// StateStore issues and consumes anti-CSRF state nonces for the provider
// redirect flows. A nonce is single-use and expires after the TTL.
type StateStore struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewStateStore creates a new state store
func NewStateStore(redis *database.Redis, ttl time.Duration) *StateStore {
	return &StateStore{redis: redis, ttl: ttl}
}

// Issue generates a new state nonce and records it with the store TTL
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state, err := utils.NewSecureToken()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("oauth:state:%s", state)
	if err := s.redis.Client.Set(ctx, key, "1", s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return state, nil
}

// Consume deletes the nonce and reports whether it was still present.
// A replayed or expired state comes back false.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	key := fmt.Sprintf("oauth:state:%s", state)
	err := s.redis.Client.GetDel(ctx, key).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to consume oauth state: %w", err)
	}

	return true, nil
}
