package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "session:"
	redisPingTimeout = 2 * time.Second
	redisScanCount   = 100
)

// RedisStore is an scs store keeping each session under "session:<token>"
// with a TTL matching the session expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: redisKeyPrefix,
	}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisStore) key(token string) string {
	return r.prefix + token
}

func (r *RedisStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return r.client.Del(ctx, r.key(token)).Err()
	}
	return r.client.Set(ctx, r.key(token), b, ttl).Err()
}

func (r *RedisStore) DeleteCtx(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}

// AllCtx returns every live session keyed by token.
func (r *RedisStore) AllCtx(ctx context.Context) (map[string][]byte, error) {
	sessions := make(map[string][]byte)

	iter := r.client.Scan(ctx, 0, r.prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		sessions[strings.TrimPrefix(key, r.prefix)] = b
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *RedisStore) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

func (r *RedisStore) Commit(token string, b []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, b, expiry)
}

func (r *RedisStore) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}

func (r *RedisStore) All() (map[string][]byte, error) {
	return r.AllCtx(context.Background())
}
