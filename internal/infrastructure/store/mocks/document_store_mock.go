package mocks

import (
	"context"
	"sync"

	"github.com/example/bookstore/internal/infrastructure/store"
)

// MockDocumentStore wraps an in-memory store, records calls and can fail on demand
type MockDocumentStore struct {
	inner *store.MemoryStore

	mu sync.Mutex

	// For tracking calls in tests
	CreateCalls []DocumentCall
	PutCalls    []DocumentCall
	UpdateCalls []DocumentCall
	DeleteCalls []DocumentCall

	// Err fields make the matching operation fail before touching the data
	GetErr    error
	CreateErr error
	PutErr    error
	ListErr   error
	UpdateErr error

	// UpdateErrFor fails Update for one specific collection/id pair
	UpdateErrFor map[DocumentCall]error
}

// DocumentCall identifies a document touched by a call
type DocumentCall struct {
	Collection string
	ID         string
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		inner:        store.NewMemoryStore(),
		UpdateErrFor: make(map[DocumentCall]error),
	}
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.inner.Get(ctx, collection, id)
}

func (m *MockDocumentStore) Create(ctx context.Context, collection, id string, doc []byte) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, DocumentCall{Collection: collection, ID: id})
	m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	return m.inner.Create(ctx, collection, id, doc)
}

func (m *MockDocumentStore) Put(ctx context.Context, collection, id string, doc []byte) error {
	m.mu.Lock()
	m.PutCalls = append(m.PutCalls, DocumentCall{Collection: collection, ID: id})
	m.mu.Unlock()

	if m.PutErr != nil {
		return m.PutErr
	}
	return m.inner.Put(ctx, collection, id, doc)
}

func (m *MockDocumentStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, DocumentCall{Collection: collection, ID: id})
	m.mu.Unlock()

	return m.inner.Delete(ctx, collection, id)
}

func (m *MockDocumentStore) List(ctx context.Context, collection string) ([][]byte, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.inner.List(ctx, collection)
}

func (m *MockDocumentStore) Update(ctx context.Context, collection, id string, fn store.UpdateFunc) error {
	call := DocumentCall{Collection: collection, ID: id}
	m.mu.Lock()
	m.UpdateCalls = append(m.UpdateCalls, call)
	failFor := m.UpdateErrFor[call]
	m.mu.Unlock()

	if failFor != nil {
		return failFor
	}
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	return m.inner.Update(ctx, collection, id, fn)
}

// Reset clears recorded calls and injected errors, keeping the data
func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = nil
	m.PutCalls = nil
	m.UpdateCalls = nil
	m.DeleteCalls = nil
	m.GetErr, m.CreateErr, m.PutErr, m.ListErr, m.UpdateErr = nil, nil, nil, nil, nil
	m.UpdateErrFor = make(map[DocumentCall]error)
}
