package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process DocumentStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // collection -> id -> document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc), nil
}

func (s *MemoryStore) Create(_ context.Context, collection, id string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][id]; ok {
		return ErrAlreadyExists
	}
	if s.data[collection] == nil {
		s.data[collection] = make(map[string][]byte)
	}
	s.data[collection][id] = clone(doc)
	return nil
}

func (s *MemoryStore) Put(_ context.Context, collection, id string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[collection] == nil {
		s.data[collection] = make(map[string][]byte)
	}
	s.data[collection][id] = clone(doc)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data[collection] != nil {
		delete(s.data[collection], id)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([][]byte, 0, len(s.data[collection]))
	for _, doc := range s.data[collection] {
		docs = append(docs, clone(doc))
	}
	return docs, nil
}

// Update holds the store lock while fn runs, so fn must not call back into the store.
func (s *MemoryStore) Update(_ context.Context, collection, id string, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	next, err := fn(clone(current))
	if err != nil {
		return err
	}
	s.data[collection][id] = clone(next)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
