// ABOUTME: In-process descriptor store used for dry runs and tests.
// ABOUTME: Stores encoded bytes so it exercises the same codec as durable backends.
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/harperreed/healthexport/internal/export"
)

// MemoryStore keeps descriptors in memory. Contents vanish on exit.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*export.Descriptor, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return export.DecodeDescriptor(raw)
}

func (s *MemoryStore) Store(ctx context.Context, key string, d export.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := export.EncodeDescriptor(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, export.KeyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
