package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"transitadmin/internal/store"
)

// collection decodes one store collection into typed records.
type collection[T any] struct {
	adapter store.Adapter
	name    store.Name
}

func (c collection[T]) load(ctx context.Context) ([]T, error) {
	raw, err := c.adapter.Read(ctx, c.name)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](c.name, raw)
}

// mutate runs fn inside the adapter's Update cycle. fn reports whether it
// changed anything; when it did not, nothing is written.
func (c collection[T]) mutate(ctx context.Context, fn func(items []T) ([]T, bool, error)) error {
	return c.adapter.Update(ctx, c.name, func(raw []json.RawMessage) ([]json.RawMessage, error) {
		items, err := decodeAll[T](c.name, raw)
		if err != nil {
			return nil, err
		}
		next, changed, err := fn(items)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, store.ErrUnchanged
		}
		return encodeAll(next)
	})
}

func decodeAll[T any](name store.Name, raw []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", name, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeAll[T any](items []T) ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return raw, nil
}

// updateOne applies fn to the first record matching match. It reports
// whether a record matched and fn accepted the change.
func updateOne[T any](ctx context.Context, c collection[T], match func(T) bool, fn func(*T) bool) (bool, error) {
	applied := false
	err := c.mutate(ctx, func(items []T) ([]T, bool, error) {
		applied = false
		for i := range items {
			if match(items[i]) {
				applied = fn(&items[i])
				return items, applied, nil
			}
		}
		return items, false, nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
