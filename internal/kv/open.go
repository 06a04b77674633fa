package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
	"github.com/imrishuroy/pizzafly-storefront/internal/config"
)

// RedisKeyPrefix namespaces storefront keys inside a shared Redis database.
const RedisKeyPrefix = "pizzafly:"

var ErrUnknownBackend = errors.New("kv: unknown backend")

// Open builds the backend selected by cfg.StoreBackend. dynamo is only used for
// the dynamodb backend and may be nil otherwise. The returned close func
// releases backend connections.
func Open(ctx context.Context, cfg config.Config, dynamo aws.DynamoDBAPI) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		if dynamo == nil {
			return nil, noop, errors.New("kv: dynamodb backend needs a client")
		}
		return NewDynamo(dynamo, cfg.StorageTable), noop, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedis(rdb, RedisKeyPrefix), rdb.Close, nil

	case config.BackendMemory:
		return NewMemory(), noop, nil
	}
	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StoreBackend)
}
