package persistence

import (
	"context"
	"sync"
)

// MemoryBackend keeps records in process memory. Records are lost when the process exits.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string][][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string][][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([][]byte, 0, len(b.records[key]))
	for _, r := range b.records[key] {
		result = append(result, append([]byte(nil), r...))
	}
	return result, nil
}

func (b *MemoryBackend) Append(_ context.Context, key string, record []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[key] = append(b.records[key], append([]byte(nil), record...))
	return len(b.records[key]), nil
}

func (b *MemoryBackend) Replace(_ context.Context, key string, record []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[key] = [][]byte{append([]byte(nil), record...)}
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
