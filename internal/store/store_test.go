package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns every KV implementation that can run in this environment.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	out := map[string]KV{"memory": NewMemory()}

	mr := miniredis.RunT(t)
	rd, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), TTL: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rd.Close() })
	out["redis"] = rd

	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pg, err := NewPostgres(dsn)
		require.NoError(t, err)
		require.NoError(t, pg.db.Exec("TRUNCATE kv_records, kv_list_items").Error)
		t.Cleanup(func() { _ = pg.Close() })
		out["postgres"] = pg
	}
	return out
}

func TestKVCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Create(ctx, "k", []byte("one")))
			assert.ErrorIs(t, kv.Create(ctx, "k", []byte("again")), ErrExists)

			e, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, int64(1), e.Version)
			assert.Equal(t, "one", string(e.Value))

			v, err := kv.CompareAndSwap(ctx, "k", 1, []byte("two"))
			require.NoError(t, err)
			assert.Equal(t, int64(2), v)

			_, err = kv.CompareAndSwap(ctx, "k", 1, []byte("stale"))
			assert.ErrorIs(t, err, ErrConcurrentModification)

			e, err = kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(e.Value))

			_, err = kv.CompareAndSwap(ctx, "missing", 1, []byte("x"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestKVLists(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := kv.Range(ctx, "l", 0, -1)
			require.NoError(t, err)
			assert.Empty(t, empty)

			for _, v := range []string{"a", "b", "c", "d"} {
				require.NoError(t, kv.Push(ctx, "l", []byte(v)))
			}
			cases := []struct {
				start, stop int64
				want        []string
			}{
				{0, -1, []string{"a", "b", "c", "d"}},
				{-2, -1, []string{"c", "d"}},
				{-10, 1, []string{"a", "b"}},
				{1, 2, []string{"b", "c"}},
				{3, 99, []string{"d"}},
				{5, 9, nil},
			}
			for _, tc := range cases {
				got, err := kv.Range(ctx, "l", tc.start, tc.stop)
				require.NoError(t, err)
				var strs []string
				for _, g := range got {
					strs = append(strs, string(g))
				}
				assert.Equal(t, tc.want, strs, "range %d..%d", tc.start, tc.stop)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	lo, hi, ok := bounds(4, -2, -1)
	assert.True(t, ok)
	assert.Equal(t, int64(2), lo)
	assert.Equal(t, int64(3), hi)

	_, _, ok = bounds(0, 0, -1)
	assert.False(t, ok)
}
