// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package freelru

import (
	"testing"

	"github.com/noexcept-lab/exidx/libpf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute(t *testing.T) {
	cache, err := New[libpf.Address, int](8, libpf.Address.Hash32)
	require.NoError(t, err)

	calls := 0
	compute := func() int {
		calls++
		return 42
	}

	assert.Equal(t, 42, cache.GetOrCompute(0x100, compute))
	assert.Equal(t, 42, cache.GetOrCompute(0x100, compute))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())

	stats := cache.GetAndResetStatistics()
	assert.Equal(t, Statistics{Hit: 1, Miss: 1, Added: 1}, stats)
	assert.Equal(t, Statistics{}, cache.GetAndResetStatistics())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
