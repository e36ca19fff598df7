package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory ObjectStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string

	// FailPut, when set, makes Put fail for keys containing the substring.
	// Batch tests use it to simulate a single participant's upload failing.
	FailPut string
}

// NewMemoryStore creates an empty store. baseURL prefixes returned URLs, e.g.
// "https://cdn.test".
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.FailPut != "" && strings.Contains(key, s.FailPut) {
		return "", &putError{key: key}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStore) Get(ctx context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[s.keyFromURL(url)]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *MemoryStore) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, s.keyFromURL(url))
	return nil
}

// Len reports how many objects are stored. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Has reports whether any stored key contains the substring. Test helper.
func (s *MemoryStore) Has(substr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.objects {
		if strings.Contains(k, substr) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) keyFromURL(url string) string {
	return strings.TrimPrefix(strings.TrimPrefix(url, s.baseURL), "/")
}

type putError struct{ key string }

func (e *putError) Error() string { return "simulated upload failure: " + e.key }
