package util

import (
	"iter"
	"maps"
	"slices"
)

func PtrEqual[T comparable](a, b *T) bool {
	return FastEqual(a, b, func(a, b *T) bool { return *a == *b })
}

func FastEqual[V any](a, b *V, slowEqual func(a, b *V) bool) bool {
	if a == b {
		return true
	}

	if a == nil || b == nil {
		return false
	}

	return slowEqual(a, b)
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Sorted iterates over the map in key order. The keys are snapshotted when
// iteration starts.
func Sorted[V any](m map[string]V) iter.Seq2[string, V] {
	keys := slices.Sorted(maps.Keys(m))

	return func(yield func(string, V) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
