package memory

import (
	"context"
	"sync"

	"learnhub/internal/domain/progress"
)

// ProgressStore is the in-memory progress.Store. A single mutex covers the
// map, so concurrent increments from in-flight deliveries never lose updates.
type ProgressStore struct {
	mu      sync.Mutex
	entries map[progress.Key]int
}

var _ progress.Store = (*ProgressStore)(nil)

func NewProgressStore() *ProgressStore {
	return &ProgressStore{entries: make(map[progress.Key]int)}
}

func (s *ProgressStore) Increment(_ context.Context, recipient, course string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[progress.Key{Recipient: recipient, Course: course}]++
	return nil
}

func (s *ProgressStore) Get(_ context.Context, recipient, course string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[progress.Key{Recipient: recipient, Course: course}], nil
}

func (s *ProgressStore) Reset(_ context.Context, recipient, course string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[progress.Key{Recipient: recipient, Course: course}] = 0
	return nil
}

func (s *ProgressStore) Snapshot(_ context.Context) (map[progress.Key]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[progress.Key]int, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}
