package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// RedisRecordStore keeps sent keys in a Redis list and the last send time in
// a companion string key.
type RedisRecordStore struct {
	client *redis.Client
	key    string
}

var _ ports.RecordStore = (*RedisRecordStore)(nil)

// NewRedisRecordStore wires an existing client; key prefixes both entries.
func NewRedisRecordStore(client *redis.Client, key string) *RedisRecordStore {
	return &RedisRecordStore{client: client, key: key}
}

// DialRedisRecordStore parses a redis:// URL and checks connectivity.
func DialRedisRecordStore(ctx context.Context, url, key string) (*RedisRecordStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisRecordStore(client, key), nil
}

// Close releases the client.
func (s *RedisRecordStore) Close() error {
	return s.client.Close()
}

func (s *RedisRecordStore) lastSentKey() string {
	return s.key + ":last_sent"
}

// Load reads the list in insertion order.
func (s *RedisRecordStore) Load(ctx context.Context) (domain.DeliveryRecord, error) {
	keys, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return domain.DeliveryRecord{}, fmt.Errorf("lrange %s: %w", s.key, err)
	}

	record := domain.DeliveryRecord{Keys: keys}

	raw, err := s.client.Get(ctx, s.lastSentKey()).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return domain.DeliveryRecord{}, fmt.Errorf("get %s: %w", s.lastSentKey(), err)
	default:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.DeliveryRecord{}, fmt.Errorf("%w: last sent: %v", ErrCorruptRecord, err)
		}
		record.LastSentAt = ts
	}

	return record, nil
}

// Save replaces both entries in one MULTI/EXEC transaction.
func (s *RedisRecordStore) Save(ctx context.Context, record domain.DeliveryRecord) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(record.Keys) > 0 {
			values := make([]any, len(record.Keys))
			for i, k := range record.Keys {
				values[i] = k
			}
			pipe.RPush(ctx, s.key, values...)
		}
		if record.LastSentAt.IsZero() {
			pipe.Del(ctx, s.lastSentKey())
		} else {
			pipe.Set(ctx, s.lastSentKey(), record.LastSentAt.Format(time.RFC3339), 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}
