package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		ttl       time.Duration
		wantValue string
		wantOK    bool
	}{
		{
			name:      "set and get value",
			key:       "test_key",
			value:     "test_value",
			ttl:       time.Hour,
			wantValue: "test_value",
			wantOK:    true,
		},
		{
			name:      "set with zero ttl (never expire)",
			key:       "never_expire",
			value:     "permanent",
			ttl:       0,
			wantValue: "permanent",
			wantOK:    true,
		},
		{
			name:      "empty value",
			key:       "empty",
			value:     "",
			ttl:       time.Hour,
			wantValue: "",
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewMemoryCache()
			ctx := context.Background()

			err := cache.Set(ctx, tt.key, tt.value, tt.ttl)
			require.NoError(t, err)

			got, ok := cache.Get(ctx, tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, got)
		})
	}
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	cache := NewMemoryCache()

	got, ok := cache.Get(context.Background(), "non_existent_key")
	assert.False(t, ok, "should return false for non-existent key")
	assert.Empty(t, got, "should return empty string")
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", "value", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get(ctx, "short")
	assert.False(t, ok, "expired entry must not be returned")
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key", "value", time.Hour))
	require.NoError(t, cache.Delete(ctx, "key"))

	_, ok := cache.Get(ctx, "key")
	assert.False(t, ok)

	// 删除不存在的 key 静默成功
	assert.NoError(t, cache.Delete(ctx, "missing"))
}

func TestMemoryCache_Cleanup(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "keep", "v", time.Hour))
	require.NoError(t, cache.Set(ctx, "drop", "v", time.Millisecond))
	time.Sleep(10 * time.Millisecond)

	cache.Cleanup()

	_, ok := cache.Get(ctx, "keep")
	assert.True(t, ok)
	assert.NotContains(t, cache.entries, "drop")
}
