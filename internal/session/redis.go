package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"store-api/internal/service"

	"github.com/nanorand/nanorand"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix    = "session:"
	sessionIDLen = 48
)

// RedisStore хранит сессии как session:<id> → JSON(service.Identity) с TTL.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(addr, password string, db int, log *zap.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis подключён", zap.String("addr", addr))
	return NewRedisStoreFromClient(rdb, log), nil
}

func NewRedisStoreFromClient(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Create(ctx context.Context, id service.Identity, ttl time.Duration) (string, error) {
	sid, err := nanorand.Gen(sessionIDLen)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	// SETNX: чужую сессию не перезаписываем
	ok, err := r.client.SetNX(ctx, keyPrefix+sid, data, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("session id collision")
	}
	return sid, nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*service.Identity, error) {
	data, err := r.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, service.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var id service.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		r.log.Warn("Повреждённая сессия в redis", zap.Error(err))
		return nil, service.ErrSessionNotFound
	}
	return &id, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, keyPrefix+sessionID).Err()
}
