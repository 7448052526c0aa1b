package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DoyleJ11/tug-of-war-backend/internal/results"
)

// Memory keeps records in process. Used when no database is configured and
// in tests.
type Memory struct {
	bucket string

	mu   sync.RWMutex
	docs map[string]results.Document
}

var _ results.Sink = (*Memory)(nil)

func NewMemory(bucket string) *Memory {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Memory{bucket: bucket, docs: make(map[string]results.Document)}
}

func (m *Memory) Bucket() string { return m.bucket }

func (m *Memory) Put(ctx context.Context, key string, doc results.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrDuplicateKey)
	}
	m.docs[key] = doc
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (results.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return results.Document{}, ErrNotFound
	}
	return doc, nil
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error { return nil }
