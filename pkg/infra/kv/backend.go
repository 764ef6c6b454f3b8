package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned by Get and TTL when the key does not exist.
var ErrNil = errors.New("kv: nil")

// NoExpiry is reported by TTL for keys stored without a lifetime.
const NoExpiry time.Duration = -1

// Backend is a TTL-capable key/value store. Each call is independently atomic;
// there are no multi-key transactions. Scan reports every matching key once.
//
//go:generate mockery --name=Backend --dir=. --output=./mocks --filename=backend_mock.go --case=underscore --with-expecter
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value with ttl; a zero ttl keeps the key forever.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

func IsNil(err error) bool {
	return errors.Is(err, ErrNil)
}
