// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/noexcept-lab/exidx/libpf"

import (
	"cmp"
	"slices"
)

// Void allows to use maps as sets without memory allocation for the values.
// From the "Go Programming Language":
//
//	The struct type with no fields is called the empty struct, written struct{}. It has size zero
//	and carries no information but may be useful nonetheless. Some Go programmers
//	use it instead of bool as the value type of a map that represents a set, to emphasize
//	that only the keys are significant, but the space saving is marginal and the syntax more
//	cumbersome, so we generally avoid it.
type Void struct{}

// Set is a convenience alias for a map with a `Void` key.
type Set[T comparable] map[T]Void

// SortedSlice returns the Set keys in ascending order.
func SortedSlice[T cmp.Ordered](s Set[T]) []T {
	slice := make([]T, 0, len(s))
	for item := range s {
		slice = append(slice, item)
	}
	slices.Sort(slice)
	return slice
}

// SliceToSet creates a set from a slice, deduplicating it.
func SliceToSet[T comparable](s []T) Set[T] {
	set := make(map[T]Void, len(s))
	for _, item := range s {
		set[item] = Void{}
	}
	return set
}
