// Package handle provides the registry mapping opaque handles to live manager instances.
package handle

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"ocm.software/open-component-model/managerproxy/manager"
)

// maxGenerateAttempts bounds handle regeneration on collision with a live handle.
const maxGenerateAttempts = 8

// Generator produces handle candidates.
type Generator func() (string, error)

// RandomGenerator returns random version 4 UUIDs. Handles never reveal anything about the
// instance they reference.
func RandomGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate handle: %w", err)
	}
	return id.String(), nil
}

// Table is a concurrent-safe registry of handles to values.
// Register, Resolve and Remove are each atomic with respect to each other.
type Table[T any] struct {
	entries    cmap.ConcurrentMap[string, T]
	count      atomic.Int64
	maxEntries int64
	generate   Generator
}

// Option configures a Table.
type Option func(*options)

type options struct {
	maxEntries int
	generate   Generator
}

// WithMaxEntries limits the number of simultaneously registered values. Zero means unlimited.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithGenerator replaces the handle generator.
func WithGenerator(g Generator) Option {
	return func(o *options) {
		o.generate = g
	}
}

// New creates an empty table.
func New[T any](opts ...Option) *Table[T] {
	o := &options{generate: RandomGenerator}
	for _, opt := range opts {
		opt(o)
	}
	return &Table[T]{
		entries:    cmap.New[T](),
		maxEntries: int64(max(o.maxEntries, 0)),
		generate:   o.generate,
	}
}

// Register inserts value under a freshly generated handle that is distinct from every
// handle currently registered.
func (t *Table[T]) Register(value T) (string, error) {
	if err := t.reserve(); err != nil {
		return "", err
	}
	for range maxGenerateAttempts {
		h, err := t.generate()
		if err != nil {
			t.count.Add(-1)
			return "", err
		}
		if t.entries.SetIfAbsent(h, value) {
			return h, nil
		}
	}
	t.count.Add(-1)
	return "", fmt.Errorf("failed to generate a unique handle after %d attempts", maxGenerateAttempts)
}

func (t *Table[T]) reserve() error {
	for {
		current := t.count.Load()
		if t.maxEntries > 0 && current >= t.maxEntries {
			return fmt.Errorf("%w: %d instances are live", manager.ErrInstanceLimit, current)
		}
		if t.count.CompareAndSwap(current, current+1) {
			return nil
		}
	}
}

// Resolve looks up the value registered under handle.
func (t *Table[T]) Resolve(handle string) (T, bool) {
	return t.entries.Get(handle)
}

// Remove unregisters handle and returns the value it referenced, if any.
func (t *Table[T]) Remove(handle string) (T, bool) {
	value, ok := t.entries.Pop(handle)
	if ok {
		t.count.Add(-1)
	}
	return value, ok
}

// Len returns the number of registered values.
func (t *Table[T]) Len() int {
	return t.entries.Count()
}

// Drain removes every entry and returns the removed values keyed by handle.
func (t *Table[T]) Drain() map[string]T {
	drained := make(map[string]T)
	for _, h := range t.entries.Keys() {
		if value, ok := t.Remove(h); ok {
			drained[h] = value
		}
	}
	return drained
}
