// Package kv is the persistent key-value layer behind every storefront store.
// Values are strings (JSON documents or decimal text); a key that is absent is
// distinct from a key holding an empty or zero value.
package kv

import (
	"context"
	"errors"
	"time"
)

// Well-known keys, shared with the browser storefront.
const (
	KeyCart         = "cart"
	KeyRewardPoints = "rewardPoints"
	KeyCartDiscount = "cartDiscount"
	KeyActiveOrder  = "activeOrder"
	KeyUser         = "pf_user"
)

var (
	// ErrEmptyKey is returned when a write names no key.
	ErrEmptyKey = errors.New("kv: empty key")
	// ErrConflict is returned when a batch is rejected because an IfAbsent key
	// already holds a live value, or a concurrent write touched the same keys.
	ErrConflict = errors.New("kv: write conflict")
)

// Write is one mutation inside an Apply batch: a put of Value, or a delete.
type Write struct {
	Key    string
	Value  string
	Delete bool
	// IfAbsent fails the whole batch with ErrConflict when Key is already set.
	IfAbsent bool
	// ExpiresAt, when non-zero, is when the key stops being readable.
	ExpiresAt time.Time
}

// Put returns a Write that stores value under key.
func Put(key, value string) Write { return Write{Key: key, Value: value} }

// PutNew returns a Write that stores value under key only if key is absent or
// expired. The key expires at expiresAt.
func PutNew(key, value string, expiresAt time.Time) Write {
	return Write{Key: key, Value: value, IfAbsent: true, ExpiresAt: expiresAt}
}

// Remove returns a Write that deletes key.
func Remove(key string) Write { return Write{Key: key, Delete: true} }

// Store is a key-value backend. Apply commits every write in the batch or
// none of them; within a batch, writes are applied in order.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Apply(ctx context.Context, writes ...Write) error
}

func validate(writes []Write) error {
	for _, w := range writes {
		if w.Key == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

// collapse keeps the last write per key, preserving first-seen order and any
// IfAbsent guard on the key. Backends
// that cannot express two operations on one key in a transaction use it.
func collapse(writes []Write) []Write {
	idx := make(map[string]int, len(writes))
	out := make([]Write, 0, len(writes))
	for _, w := range writes {
		if i, ok := idx[w.Key]; ok {
			w.IfAbsent = w.IfAbsent || out[i].IfAbsent
			out[i] = w
			continue
		}
		idx[w.Key] = len(out)
		out = append(out, w)
	}
	return out
}
