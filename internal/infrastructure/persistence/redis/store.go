package redis

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
)

var _ service.KeyValueStore = (*Store)(nil)

// scanBatchSize is the COUNT hint passed to SCAN.
const scanBatchSize = 256

// Store implements service.KeyValueStore on Redis strings and sorted sets.
// Every client failure is returned as an infrastructure error.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a store on top of an established client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Get returns the string stored under key. redis.Nil is reported as found=false.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.ErrInfrastructure("redis get", err)
	}
	return val, true, nil
}

// Set stores value with SET EX semantics.
func (s *Store) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.ErrInfrastructure("redis set", err)
	}
	return nil
}

// Delete removes keys with a single DEL.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.ErrInfrastructure("redis del", err)
	}
	return nil
}

// ScanKeysByPrefix walks the keyspace with SCAN MATCH. The prefix is glob-escaped so
// user-controlled ids cannot widen the match.
func (s *Store) ScanKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(prefix) + "*"
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, errors.ErrInfrastructure("redis scan", err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

// ZAdd adds member to the sorted set at key.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return errors.ErrInfrastructure("redis zadd", err)
	}
	return nil
}

// ZRemRangeByScore removes members with min <= score <= max.
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	err := s.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
	if err != nil {
		return errors.ErrInfrastructure("redis zremrangebyscore", err)
	}
	return nil
}

// ZCard returns the cardinality of the sorted set at key.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, errors.ErrInfrastructure("redis zcard", err)
	}
	return n, nil
}

// Expire sets the TTL of key with millisecond precision.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.PExpire(ctx, key, ttl).Err(); err != nil {
		return errors.ErrInfrastructure("redis pexpire", err)
	}
	return nil
}

func formatScore(score float64) string {
	switch {
	case math.IsInf(score, -1):
		return "-inf"
	case math.IsInf(score, 1):
		return "+inf"
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

//Personal.AI order the ending
