package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// guardedScript runs a batch holding IfAbsent writes. ARGV carries four fields
// per key: guard flag, delete flag, value, ttl in milliseconds.
var guardedScript = redis.NewScript(`
for i = 1, #KEYS do
  if ARGV[i*4-3] == "1" and redis.call("EXISTS", KEYS[i]) == 1 then
    return 0
  end
end
for i = 1, #KEYS do
  if ARGV[i*4-2] == "1" then
    redis.call("DEL", KEYS[i])
  elseif tonumber(ARGV[i*4]) > 0 then
    redis.call("SET", KEYS[i], ARGV[i*4-1], "PX", ARGV[i*4])
  else
    redis.call("SET", KEYS[i], ARGV[i*4-1])
  end
end
return 1
`)

// Redis stores each key as a plain Redis string. Batches run inside MULTI/EXEC,
// or as one script when a write is IfAbsent. Expiring keys use Redis TTLs.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedis returns a Redis store. prefix is prepended to every key ("" for none).
func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (r *Redis) Apply(ctx context.Context, writes ...Write) error {
	if err := validate(writes); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	for _, w := range writes {
		if w.IfAbsent {
			return r.applyGuarded(ctx, writes)
		}
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			if w.Delete {
				pipe.Del(ctx, r.prefix+w.Key)
				continue
			}
			pipe.Set(ctx, r.prefix+w.Key, w.Value, ttl(w))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}
	return nil
}

func (r *Redis) applyGuarded(ctx context.Context, writes []Write) error {
	keys := make([]string, 0, len(writes))
	args := make([]any, 0, 4*len(writes))
	for _, w := range writes {
		keys = append(keys, r.prefix+w.Key)
		args = append(args, flag(w.IfAbsent), flag(w.Delete), w.Value, ttl(w).Milliseconds())
	}
	ok, err := guardedScript.Run(ctx, r.rdb, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("redis script: %w", err)
	}
	if ok == 0 {
		return ErrConflict
	}
	return nil
}

// ttl is the Redis expiration for w; 0 means none. A past deadline still gets
// the shortest expiry rather than none.
func ttl(w Write) time.Duration {
	if w.ExpiresAt.IsZero() {
		return 0
	}
	return max(time.Until(w.ExpiresAt), time.Millisecond)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
