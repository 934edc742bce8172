package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte("payload")
	require.NoError(t, m.Set(ctx, "key", value, 0))

	// Stored value is a copy
	value[0] = 'X'
	got, err := m.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, m.Delete(ctx, "key"))
	_, err = m.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "long", []byte("b"), time.Hour))
	require.NoError(t, m.Set(ctx, "forever", []byte("c"), 0))

	now = now.Add(2 * time.Minute)

	_, err := m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, "long")
	assert.NoError(t, err)

	now = now.Add(2 * time.Hour)
	purged, err := m.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	got, err := m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}

// TestRedis runs against a live server when REDIS_TEST_ADDR is set
func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	ctx := context.Background()
	r := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), "nadlan-test:")
	defer r.Close()
	require.NoError(t, r.Ping(ctx))

	_, err := r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Set(ctx, "key", []byte("payload"), time.Minute))
	got, err := r.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, r.Delete(ctx, "key"))
	_, err = r.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrNotFound)
}
