package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "models", Count: 3}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "models", Count: 3}, got)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	var got payload
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Count: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "k", payload{Count: 2}, time.Minute))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 2, got.Count)
}
