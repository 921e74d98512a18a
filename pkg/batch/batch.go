package batch

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// Item is a value tagged with the key that must be unique within a batch.
type Item[K cmp.Ordered, T any] struct {
	Key   K
	Value T
}

// Batch is an immutable key-ordered set of items with unique keys.
type Batch[K cmp.Ordered, T any] struct {
	keys   []K
	values map[K]T
}

func newBatch[K cmp.Ordered, T any](values map[K]T) Batch[K, T] {
	return Batch[K, T]{
		keys:   slices.Sorted(maps.Keys(values)),
		values: values,
	}
}

// Len returns the number of items in the batch.
func (b Batch[K, T]) Len() int { return len(b.keys) }

// Keys returns the keys in ascending order.
func (b Batch[K, T]) Keys() []K { return slices.Clone(b.keys) }

// Get returns the item stored under key.
func (b Batch[K, T]) Get(key K) (T, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Values returns the items in ascending key order.
func (b Batch[K, T]) Values() []T {
	out := make([]T, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.values[k])
	}
	return out
}

// All iterates over key/item pairs in ascending key order.
func (b Batch[K, T]) All() iter.Seq2[K, T] {
	return func(yield func(K, T) bool) {
		for _, k := range b.keys {
			if !yield(k, b.values[k]) {
				return
			}
		}
	}
}

// Partition returns the batches of items such that
//   - every item appears in exactly one batch,
//   - no batch holds two items with the same key,
//   - the number of batches equals the highest multiplicity of any key.
//
// The sequence is lazy and single-use: each batch is computed when the
// consumer asks for it, and ranging over the sequence a second time resumes
// where the previous loop stopped. Empty input yields no batches.
func Partition[K cmp.Ordered, T any](items []Item[K, T]) iter.Seq[Batch[K, T]] {
	remaining := slices.Clone(items)
	return func(yield func(Batch[K, T]) bool) {
		for len(remaining) > 0 {
			values := make(map[K]T)
			var deferred []Item[K, T]
			for _, it := range remaining {
				if _, taken := values[it.Key]; taken {
					deferred = append(deferred, it)
					continue
				}
				values[it.Key] = it.Value
			}
			remaining = deferred
			if !yield(newBatch(values)) {
				return
			}
		}
	}
}

// Count returns the number of batches [Partition] produces for items
// without building them.
func Count[K cmp.Ordered, T any](items []Item[K, T]) int {
	seen := make(map[K]int)
	most := 0
	for _, it := range items {
		seen[it.Key]++
		most = max(most, seen[it.Key])
	}
	return most
}
