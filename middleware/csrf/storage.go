package csrf

import (
	"sync"
	"time"
)

type storedToken struct {
	value     string
	expiresAt time.Time
}

// MemoryStorage is a process-local Storage with per-entry TTL. Suitable for
// single-instance deployments and tests; multi-instance setups should back
// the middleware with a shared store instead.
type MemoryStorage struct {
	mu     sync.Mutex
	tokens map[string]storedToken
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tokens: map[string]storedToken{},
	}
}

func (s *MemoryStorage) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[key]
	if !ok {
		return "", nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.tokens, key)
		return "", nil
	}

	return entry.value, nil
}

func (s *MemoryStorage) Set(key, value string, expiration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := storedToken{value: value}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}

	s.tokens[key] = entry
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, key)
	return nil
}

var _ Storage = (*MemoryStorage)(nil)
