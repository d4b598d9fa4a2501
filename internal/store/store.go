package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	secure "github.com/soulteary/secure-kit"
)

const (
	usedPrefix   = "totp:used:"
	rateIPPrefix = "totp:rate:ip:"
)

// Store keeps short-lived serve state in Redis: which (seed, step) pairs were
// already accepted, and per-IP request counters. Seeds are only ever stored as
// SHA-256 digests inside key names.
type Store struct {
	rdb       *redis.Client
	usedTTL   time.Duration
	rateIPTTL time.Duration
}

// NewStore creates a Store with the given Redis client and TTLs.
func NewStore(rdb *redis.Client, usedTTL, rateIPTTL time.Duration) *Store {
	return &Store{
		rdb:       rdb,
		usedTTL:   usedTTL,
		rateIPTTL: rateIPTTL,
	}
}

// Client returns the underlying Redis client (for health checks).
func (s *Store) Client() *redis.Client {
	return s.rdb
}

func usedKey(seed string, step int64) string {
	return usedPrefix + secure.GetSHA256Hash(seed) + ":" + strconv.FormatInt(step, 10)
}

// MarkStepUsed records that the code for step was accepted. It returns false
// when the step had already been marked, i.e. the code is being replayed.
func (s *Store) MarkStepUsed(ctx context.Context, seed string, step int64) (bool, error) {
	return s.rdb.SetNX(ctx, usedKey(seed, step), "1", s.usedTTL).Result()
}

// IncrRateIP increments the IP rate counter and returns the new count. The
// window starts with the first hit; later hits do not extend it.
func (s *Store) IncrRateIP(ctx context.Context, ip string) (int64, error) {
	key := rateIPPrefix + ip
	n, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.rdb.Expire(ctx, key, s.rateIPTTL).Err(); err != nil {
			return 0, err
		}
	}
	return n, nil
}
