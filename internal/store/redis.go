package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Redis stores each record as a JSON string under <prefix>user:<id>.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(userID int64) string {
	return r.prefix + "user:" + strconv.FormatInt(userID, 10)
}

func decode(data string) (UserRecord, error) {
	var rec UserRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return UserRecord{}, fmt.Errorf("decode user record: %w", err)
	}
	return rec, nil
}

func (r *Redis) Get(ctx context.Context, userID int64) (UserRecord, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return UserRecord{}, ErrNotFound
	}
	if err != nil {
		return UserRecord{}, err
	}
	return decode(data)
}

func (r *Redis) Put(ctx context.Context, rec UserRecord) (UserRecord, error) {
	key := r.key(rec.UserID)
	var stored UserRecord
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		version, err := r.versionOf(ctx, tx, key)
		if err != nil {
			return err
		}
		stored = stamp(rec, version+1)
		return r.write(ctx, tx, key, stored)
	}, key)
	if err != nil {
		return UserRecord{}, err
	}
	return stored, nil
}

func (r *Redis) CompareAndSwap(ctx context.Context, prev, next UserRecord) (UserRecord, bool, error) {
	key := r.key(next.UserID)
	var (
		stored  UserRecord
		swapped bool
	)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		version, err := r.versionOf(ctx, tx, key)
		if err != nil {
			return err
		}
		if version != prev.Version {
			return nil
		}
		stored = stamp(next, version+1)
		if err := r.write(ctx, tx, key, stored); err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return UserRecord{}, false, nil
	}
	if err != nil {
		return UserRecord{}, false, err
	}
	return stored, swapped, nil
}

func (r *Redis) versionOf(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	rec, err := decode(data)
	if err != nil {
		return 0, err
	}
	return rec.Version, nil
}

func (r *Redis) write(ctx context.Context, tx *redis.Tx, key string, rec UserRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		return nil
	})
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}
