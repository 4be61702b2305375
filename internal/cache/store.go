package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ReputationKeyPrefix     = "reputation:%s"
	OwnerProposalsKeyPrefix = "proposals:owner:%s"
	LeaderboardKey          = "leaderboard:top"
)

const (
	ReputationTTL     = 5 * time.Minute
	OwnerProposalsTTL = 2 * time.Minute
	LeaderboardTTL    = time.Minute
)

func ReputationKey(userID string) string {
	return fmt.Sprintf(ReputationKeyPrefix, userID)
}

func OwnerProposalsKey(ownerID string) string {
	return fmt.Sprintf(OwnerProposalsKeyPrefix, ownerID)
}

// Store is a JSON cache over Redis. A nil Store, or one without a client, never hits
// and never stores, so callers always fall through to the database.
type Store struct {
	rdb *redis.Client
}

// NewStore wraps rdb. rdb may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Enabled reports whether the store is backed by Redis.
func (s *Store) Enabled() bool {
	return s != nil && s.rdb != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// CacheAside tries Redis first, on miss it calls fetch (which must populate dest),
// then stores the result with ttl. Cache read errors fall through to fetch.
func (s *Store) CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (hit bool, err error) {
	found, err := s.GetJSON(ctx, key, dest)
	if err == nil && found {
		return true, nil
	}

	if err := fetch(); err != nil {
		return false, err
	}

	// Best-effort write back.
	_ = s.SetJSON(ctx, key, dest, ttl)
	return false, nil
}

// Invalidate deletes keys. Failures are returned for logging; callers treat them as best-effort.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// InvalidateReputation drops the cached reputation of each user and the leaderboard.
func (s *Store) InvalidateReputation(ctx context.Context, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs)+1)
	for _, id := range userIDs {
		keys = append(keys, ReputationKey(id))
	}
	keys = append(keys, LeaderboardKey)
	return s.Invalidate(ctx, keys...)
}
