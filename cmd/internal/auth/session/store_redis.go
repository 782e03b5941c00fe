package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each session as a JSON value with a TTL equal to its
// remaining lifetime. A per-user set indexes keys for DeleteUser.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "blog:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis connects and pings within two seconds.
func OpenRedis(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(k string) string { return r.prefix + k }

func (r *RedisStore) userKey(userID string) string { return r.prefix + "user:" + userID }

func (r *RedisStore) Create(ctx context.Context, key string, rec Record) error {
	if key == "" || rec.UserID == "" {
		return fmt.Errorf("session: missing key or user_id")
	}

	ttl := rec.ExpiresAt.Sub(rec.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be after created_at")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(key), data, ttl)
		pipe.SAdd(ctx, r.userKey(rec.UserID), key)
		pipe.Expire(ctx, r.userKey(rec.UserID), ttl)
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, key string, now time.Time) (Record, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrSessionNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("session: unmarshal: %w", err)
	}
	// Redis expiry has its own clock; the record's own deadline wins.
	if !rec.Live(now) {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	raw, err := r.client.GetDel(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	var rec Record
	if json.Unmarshal(raw, &rec) == nil && rec.UserID != "" {
		return r.client.SRem(ctx, r.userKey(rec.UserID), key).Err()
	}
	return nil
}

func (r *RedisStore) DeleteUser(ctx context.Context, userID string) error {
	members, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.key(m))
	}
	keys = append(keys, r.userKey(userID))

	return r.client.Del(ctx, keys...).Err()
}
