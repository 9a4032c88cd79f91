package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fkoehle/habit-coach/internal/habit"
)

// Store wraps the two Redis uses of the service: the JWT revocation denylist
// and a short-lived per-user achievements cache.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func revokedKey(jti string) string { return "auth:revoked:" + jti }

// RevokeToken denylists a token id until its natural expiry.
func (s *Store) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired
	}
	return s.rdb.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	err := s.rdb.Get(ctx, revokedKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func achievementsKey(userID uint64) string {
	return fmt.Sprintf("achievements:%d", userID)
}

// GetAchievements returns the cached badge list, if any.
func (s *Store) GetAchievements(ctx context.Context, userID uint64) ([]habit.Achievement, bool, error) {
	raw, err := s.rdb.Get(ctx, achievementsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var achs []habit.Achievement
	if err := json.Unmarshal(raw, &achs); err != nil {
		return nil, false, err
	}
	return achs, true, nil
}

func (s *Store) SetAchievements(ctx context.Context, userID uint64, achs []habit.Achievement, ttl time.Duration) error {
	raw, err := json.Marshal(achs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, achievementsKey(userID), raw, ttl).Err()
}

// InvalidateAchievements drops the cached badges after any habit write or a
// sign-out.
func (s *Store) InvalidateAchievements(ctx context.Context, userID uint64) error {
	return s.rdb.Del(ctx, achievementsKey(userID)).Err()
}
