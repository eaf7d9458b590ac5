package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, "test:")
	t.Cleanup(func() {
		s.Close()
		mr.Close()
	})
	return s, mr
}

func backends(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), 1)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			stored, err := s.Put(ctx, UserRecord{
				UserID:    7,
				BirthDate: "07.10.1990",
				Summary:   map[string]string{"Sun": "Libra"},
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), stored.Version)
			assert.False(t, stored.UpdatedAt.IsZero())

			got, err := s.Get(ctx, 7)
			require.NoError(t, err)
			assert.Equal(t, "07.10.1990", got.BirthDate)
			assert.Equal(t, "Libra", got.Summary["Sun"])
			assert.Equal(t, int64(1), got.Version)

			stored, err = s.Put(ctx, got)
			require.NoError(t, err)
			assert.Equal(t, int64(2), stored.Version)
		})
	}
}

func TestCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Creating a record: prev is the zero record.
			first, ok, err := s.CompareAndSwap(ctx, UserRecord{}, UserRecord{UserID: 3, City: "Казань"})
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(1), first.Version)

			next := first
			next.Subscribed = true
			second, ok, err := s.CompareAndSwap(ctx, first, next)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(2), second.Version)

			// A stale writer loses.
			stale := first
			stale.City = "Уфа"
			_, ok, err = s.CompareAndSwap(ctx, first, stale)
			require.NoError(t, err)
			assert.False(t, ok)

			got, err := s.Get(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, "Казань", got.City)
			assert.True(t, got.Subscribed)
		})
	}
}

func TestUpdateConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wg sync.WaitGroup
	var conflicts int
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Update(ctx, s, 11, func(r *UserRecord) error {
				r.Reports++
				return nil
			})
			if errors.Is(err, ErrConflict) {
				mu.Lock()
				conflicts++
				mu.Unlock()
				return
			}
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 20-conflicts, got.Reports)
	assert.Equal(t, int64(got.Reports), got.Version)
}

func TestUpdateRedis(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	rec, err := Update(ctx, s, 5, func(r *UserRecord) error {
		r.Timezone = "Europe/Moscow"
		r.BirthDate = "01.01.2000"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, rec.HasBirthData())
	assert.True(t, mr.Exists("test:user:5"))

	boom := errors.New("boom")
	_, err = Update(ctx, s, 5, func(r *UserRecord) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRedisCorruptRecord(t *testing.T) {
	s, mr := newRedisStore(t)
	require.NoError(t, mr.Set("test:user:9", "{not json"))
	_, err := s.Get(context.Background(), 9)
	assert.Error(t, err)
}
