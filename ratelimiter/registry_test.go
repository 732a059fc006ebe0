package ratelimiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("non-existent")
	assert.Error(t, err)

	first := New(100, 10)
	registry.Set("test-model", first)

	got, err := registry.Get("test-model")
	require.NoError(t, err)
	assert.Same(t, first, got)

	second := New(200, 10)
	registry.Set("test-model", second)
	got, ok := registry.Lookup("test-model")
	require.True(t, ok)
	assert.Same(t, second, got)

	registry.Set("test-model", nil)
	_, ok = registry.Lookup("test-model")
	assert.False(t, ok, "setting nil removes the limiter")
}
