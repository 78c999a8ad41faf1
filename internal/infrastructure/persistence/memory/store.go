// Package memory provides a single-process KeyValueStore for deployments without Redis.
// Strings live in go-cache; sorted sets live in a mutex-guarded map with lazy expiry.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/turtacn/authcore/internal/domain/service"
)

var _ service.KeyValueStore = (*Store)(nil)

type sortedSet struct {
	members   map[string]float64
	expiresAt time.Time
}

func (z *sortedSet) expired(now time.Time) bool {
	return !z.expiresAt.IsZero() && !now.Before(z.expiresAt)
}

// Store is an in-process KeyValueStore. It is safe for concurrent use.
type Store struct {
	strings *gocache.Cache

	mu   sync.Mutex
	sets map[string]*sortedSet
	now  func() time.Time
}

// NewStore creates an empty store. cleanupInterval controls how often go-cache purges expired strings.
func NewStore(cleanupInterval time.Duration) *Store {
	return &Store{
		strings: gocache.New(gocache.NoExpiration, cleanupInterval),
		sets:    make(map[string]*sortedSet),
		now:     time.Now,
	}
}

// Get returns the string under key.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.strings.Get(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

// Set stores value. A zero TTL keeps the key until deleted.
func (s *Store) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.strings.Set(key, value, ttl)
	return nil
}

// Delete removes string and sorted-set keys alike.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.strings.Delete(key)
		delete(s.sets, key)
	}
	return nil
}

// ScanKeysByPrefix lists live keys of either kind starting with prefix.
func (s *Store) ScanKeysByPrefix(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range s.strings.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	s.mu.Lock()
	now := s.now()
	for key, set := range s.sets {
		if set.expired(now) {
			delete(s.sets, key)
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys, nil
}

// ZAdd adds or updates member.
func (s *Store) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.liveSet(key)
	if set == nil {
		set = &sortedSet{members: make(map[string]float64)}
		s.sets[key] = set
	}
	set.members[member] = score
	return nil
}

// ZRemRangeByScore removes members with min <= score <= max.
func (s *Store) ZRemRangeByScore(_ context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.liveSet(key)
	if set == nil {
		return nil
	}
	for member, score := range set.members {
		if score >= min && score <= max {
			delete(set.members, member)
		}
	}
	if len(set.members) == 0 {
		delete(s.sets, key)
	}
	return nil
}

// ZCard returns the number of members.
func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.liveSet(key)
	if set == nil {
		return 0, nil
	}
	return int64(len(set.members)), nil
}

// Expire refreshes the TTL of a sorted set or string key. Missing keys are ignored.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set := s.liveSet(key); set != nil {
		set.expiresAt = s.now().Add(ttl)
		return nil
	}
	if v, ok := s.strings.Get(key); ok {
		s.strings.Set(key, v, ttl)
	}
	return nil
}

// liveSet returns the set under key, dropping it when expired. Caller holds mu.
func (s *Store) liveSet(key string) *sortedSet {
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	if set.expired(s.now()) {
		delete(s.sets, key)
		return nil
	}
	return set
}

//Personal.AI order the ending
