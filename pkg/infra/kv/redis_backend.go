package kv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultOpTimeout = 3 * time.Second
	scanCount        = 100
)

var compareAndDeleteScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Host      string
	Port      int
	Password  string
	DB        int
	TLS       bool
	OpTimeout time.Duration
}

type redisBackend struct {
	redisClient *redis.Client
	opTimeout   time.Duration
}

func NewRedisBackend(config Config, logger *logrus.Logger) (*redisBackend, error) {
	options := &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: 3,
	}
	if config.TLS {
		options.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402
		}
	}
	redisClient := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithFields(logrus.Fields{
			"host":  config.Host,
			"port":  config.Port,
			"error": err.Error(),
		}).Error("failed to connect to redis")
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host": config.Host,
		"port": config.Port,
		"db":   config.DB,
	}).Info("redis connected successfully")

	return NewRedisBackendFromClient(redisClient, config.OpTimeout), nil
}

// NewRedisBackendFromClient wraps an existing client; used by tests with redismock.
func NewRedisBackendFromClient(redisClient *redis.Client, opTimeout time.Duration) *redisBackend {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &redisBackend{
		redisClient: redisClient,
		opTimeout:   opTimeout,
	}
}

func (b *redisBackend) RedisClient() *redis.Client {
	return b.redisClient
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	val, err := b.redisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", domain.NewBackendError("get "+key, err)
	}
	return val, nil
}

func (b *redisBackend) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	if err := b.redisClient.Set(ctx, key, value, ttl).Err(); err != nil {
		return domain.NewBackendError("set "+key, err)
	}
	return nil
}

func (b *redisBackend) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	ok, err := b.redisClient.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, domain.NewBackendError("setnx "+key, err)
	}
	return ok, nil
}

func (b *redisBackend) CompareAndDelete(ctx context.Context, key string, value string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	n, err := compareAndDeleteScript.Run(ctx, b.redisClient, []string{key}, value).Int64()
	if err != nil {
		return false, domain.NewBackendError("compare-and-delete "+key, err)
	}
	return n == 1, nil
}

func (b *redisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	if err := b.redisClient.Del(ctx, keys...).Err(); err != nil {
		return domain.NewBackendError("del", err)
	}
	return nil
}

func (b *redisBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	ttl, err := b.redisClient.TTL(ctx, key).Result()
	if err != nil {
		return 0, domain.NewBackendError("ttl "+key, err)
	}
	// go-redis reports the raw -2 / -1 replies as nanoseconds.
	switch ttl {
	case -2:
		return 0, ErrNil
	case -1:
		return NoExpiry, nil
	}
	return ttl, nil
}

func (b *redisBackend) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	ok, err := b.redisClient.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, domain.NewBackendError("expire "+key, err)
	}
	return ok, nil
}

func (b *redisBackend) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	// SCAN may hand back a key more than once while the keyspace is rehashed.
	seen := make(map[string]struct{})
	for {
		keys, nextCursor, err := b.scanPage(ctx, cursor, pattern)
		if err != nil {
			return nil, domain.NewBackendError("scan "+pattern, err)
		}
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (b *redisBackend) scanPage(ctx context.Context, cursor uint64, pattern string) ([]string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	return b.redisClient.Scan(ctx, cursor, pattern, scanCount).Result()
}

func (b *redisBackend) Close() error {
	return b.redisClient.Close()
}

func (b *redisBackend) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.opTimeout)
	defer cancel()
	if err := b.redisClient.Ping(ctx).Err(); err != nil {
		return domain.NewBackendError("ping", err)
	}
	return nil
}
