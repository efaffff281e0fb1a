// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package freelru is a wrapper around go-freelru.LRU with hit/miss statistics,
// used to memoize per-entry decoding results.
package freelru // import "github.com/noexcept-lab/exidx/libpf/freelru"

import (
	"sync/atomic"

	lru "github.com/elastic/go-freelru"
)

// LRU is a wrapper around go-freelru.LRU with additional statistics embedded.
type LRU[K comparable, V any] struct {
	lru *lru.LRU[K, V]

	hit     atomic.Uint64
	miss    atomic.Uint64
	added   atomic.Uint64
	evicted atomic.Uint64
}

// Statistics reports the cache usage since the last reset.
type Statistics struct {
	// Number of times for a hit of a cache entry.
	Hit uint64
	// Number of times for a miss of a cache entry.
	Miss uint64
	// Number of elements that were added to the cache.
	Added uint64
	// Number of elements that were evicted to make room for new ones.
	Evicted uint64
}

func New[K comparable, V any](capacity uint32, hash lru.HashKeyCallback[K]) (*LRU[K, V], error) {
	cache, err := lru.New[K, V](capacity, hash)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{lru: cache}, nil
}

func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	evicted = c.lru.Add(key, value)
	if evicted {
		c.evicted.Add(1)
	}
	c.added.Add(1)
	return evicted
}

func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	value, ok = c.lru.Get(key)
	if ok {
		c.hit.Add(1)
	} else {
		c.miss.Add(1)
	}
	return value, ok
}

// GetOrCompute returns the cached value for key, or computes, stores and
// returns it.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() V) V {
	if value, ok := c.Get(key); ok {
		return value
	}
	value := compute()
	c.Add(key, value)
	return value
}

func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

func (c *LRU[K, V]) Purge() {
	c.lru.Purge()
}

// GetAndResetStatistics returns the internal statistics for this LRU and resets all values to 0.
func (c *LRU[K, V]) GetAndResetStatistics() Statistics {
	return Statistics{
		Hit:     c.hit.Swap(0),
		Miss:    c.miss.Swap(0),
		Added:   c.added.Swap(0),
		Evicted: c.evicted.Swap(0),
	}
}
