package core

import (
	"context"
	"sync"
)

// MemoryTokenStore keeps one TokenRecord in process memory. Reads and writes
// always operate on the full record.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	record TokenRecord
	loaded bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(ctx context.Context) (TokenRecord, bool, error) {
	if err := contextErr(ctx); err != nil {
		return TokenRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return TokenRecord{}, false, nil
	}
	return s.record, true, nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, record TokenRecord) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.IsZero() {
		s.record = TokenRecord{}
		s.loaded = false
		return nil
	}
	s.record = record
	s.loaded = true
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	if err := contextErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = TokenRecord{}
	s.loaded = false
	return nil
}

func contextErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
