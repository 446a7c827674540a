package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestRedisRecordStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := DialRedisRecordStore(ctx, "redis://"+mr.Addr(), "newsdigest:sent")
	require.NoError(t, err)
	defer store.Close()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Keys)
	assert.True(t, empty.LastSentAt.IsZero())

	sent := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, domain.DeliveryRecord{Keys: []string{"a", "b"}, LastSentAt: sent}))
	require.NoError(t, store.Save(ctx, domain.DeliveryRecord{Keys: []string{"b", "c", "d"}, LastSentAt: sent.Add(time.Hour)}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, got.Keys)
	assert.True(t, got.LastSentAt.Equal(sent.Add(time.Hour)))

	list, err := mr.List("newsdigest:sent")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, list)
}

func TestRedisRecordStoreEmptySaveClears(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store := NewRedisRecordStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "k")
	require.NoError(t, store.Save(ctx, domain.DeliveryRecord{Keys: []string{"x"}, LastSentAt: time.Now()}))
	require.NoError(t, store.Save(ctx, domain.DeliveryRecord{}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Keys)
	assert.True(t, got.LastSentAt.IsZero())
}

func TestRedisRecordStoreCorruptTimestamp(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("k:last_sent", "yesterday"))

	store := NewRedisRecordStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "k")
	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestDialRedisRecordStoreBadURL(t *testing.T) {
	_, err := DialRedisRecordStore(context.Background(), "not-a-url", "k")
	require.Error(t, err)
}
