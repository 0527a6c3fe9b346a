package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/questlogic/config"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), config.Redis{Addr: mr.Addr(), Prefix: "ql:", TTL: ttl}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

// stores runs fn against both backends.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s, err := NewFileStore(filepath.Join(t.TempDir(), "saves"), nil)
		require.NoError(t, err)
		fn(t, s)
	})
	t.Run("redis", func(t *testing.T) {
		s, _ := setupTestRedis(t, 0)
		fn(t, s)
	})
}

func TestStore_SaveLoadListDelete(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		blob := []byte{'Q', 'L', 'S', 'V', 0, 1, 2, 0xff}

		require.NoError(t, s.Save(ctx, "beta", blob))
		require.NoError(t, s.Save(ctx, "alpha", []byte("x")))

		got, err := s.Load(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, blob, got)

		slots, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, "alpha", slots[0].Name)
		assert.Equal(t, "beta", slots[1].Name)
		assert.Equal(t, len(blob), slots[1].Size)
		assert.False(t, slots[1].Saved.IsZero())

		require.NoError(t, s.Save(ctx, "beta", []byte("shorter")))
		got, err = s.Load(ctx, "beta")
		require.NoError(t, err)
		assert.Equal(t, []byte("shorter"), got)

		require.NoError(t, s.Delete(ctx, "alpha"))
		_, err = s.Load(ctx, "alpha")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "alpha"), ErrNotFound)
	})
}

func TestStore_RejectsBadSlotNames(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, name := range []string{"", "../escape", "a b", "slot*"} {
			assert.Error(t, s.Save(ctx, name, []byte("x")), name)
			_, err := s.Load(ctx, name)
			assert.Error(t, err, name)
		}
	})
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "quick", []byte("blob")))
	assert.Equal(t, time.Hour, mr.TTL("ql:slot:quick"))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "quick")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(context.Background(), config.Redis{Addr: addr}, nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.Save{Backend: "file", Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, config.Save{Backend: "redis", Redis: config.Redis{Addr: mr.Addr()}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	s.Close()

	_, err = Open(ctx, config.Save{Backend: "tape"}, nil)
	assert.Error(t, err)
}
