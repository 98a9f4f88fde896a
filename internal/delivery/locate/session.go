package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Detection is the cached outcome of a successful postcode detection.
type Detection struct {
	Postcode   string    `json:"postcode"`
	Locality   string    `json:"locality,omitempty"`
	Source     string    `json:"source"`
	DetectedAt time.Time `json:"detectedAt"`
}

// SessionStore keeps the last detection per browsing session. Writes
// overwrite unconditionally; the last one wins.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (Detection, error)
	Set(ctx context.Context, sessionID string, d Detection) error
}

// RedisSessionStore persists detections in Redis with a TTL.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: client, ttl: ttl}
}

func (s *RedisSessionStore) key(sessionID string) string {
	return fmt.Sprintf("delivery:session:%s", sessionID)
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (Detection, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Detection{}, ErrSessionNotFound
	}
	if err != nil {
		return Detection{}, fmt.Errorf("locate: get session: %w", err)
	}

	var d Detection
	if err := json.Unmarshal(data, &d); err != nil {
		return Detection{}, fmt.Errorf("locate: unmarshal session: %w", err)
	}
	return d, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, sessionID string, d Detection) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("locate: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("locate: set session: %w", err)
	}
	return nil
}

// MemorySessionStore is the in-process fallback when Redis is not configured.
type MemorySessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	detection Detection
	expires   time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (Detection, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Detection{}, ErrSessionNotFound
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return Detection{}, ErrSessionNotFound
	}
	return entry.detection, nil
}

func (s *MemorySessionStore) Set(_ context.Context, sessionID string, d Detection) error {
	entry := memoryEntry{detection: d}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

// Evict drops expired detections and returns how many were removed.
func (s *MemorySessionStore) Evict() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, entry := range s.entries {
		if !entry.expires.IsZero() && now.After(entry.expires) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored detections, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
