package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one DocumentStore collection.
type Collection[T any] struct {
	store DocumentStore
	name  string
}

func NewCollection[T any](s DocumentStore, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Get loads and decodes a document. Missing documents return ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
	}
	return &v, nil
}

// Create stores v only if id is unused; otherwise it returns ErrAlreadyExists.
func (c *Collection[T]) Create(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Create(ctx, c.name, id, raw)
}

func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, id, err)
	}
	return c.store.Put(ctx, c.name, id, raw)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}

// All decodes every document in the collection.
func (c *Collection[T]) All(ctx context.Context) ([]*T, error) {
	raws, err := c.store.List(ctx, c.name)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.name, err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// Update applies fn to the decoded document atomically and returns the stored result.
// fn may run more than once on optimistic backends and must only mutate its argument.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var result *T
	err := c.store.Update(ctx, c.name, id, func(current []byte) ([]byte, error) {
		var v T
		if err := json.Unmarshal(current, &v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		result = &v
		return json.Marshal(&v)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
