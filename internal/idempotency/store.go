// Package idempotency lets a client retry a request under the same key and get
// the first response back instead of repeating its side effects.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
)

// DefaultTTL is how long a key is remembered.
const DefaultTTL = 48 * time.Hour

// KeyPrefix namespaces idempotency records among a scope's keys.
const KeyPrefix = "idem:"

var ErrInvalidKey = errors.New("invalid idempotency key")

// Store keeps idempotency records in a kv.Store.
type Store struct {
	kv        kv.Store
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store. A non-positive ttlWindow means DefaultTTL.
func NewStore(store kv.Store, ttlWindow time.Duration) *Store {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTL
	}
	return &Store{
		kv:        store,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// ValidateKey rejects blank or oversized keys.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 255 {
		return ErrInvalidKey
	}
	return nil
}

// Get retrieves a live record by key. If not found, expired, or unreadable, it
// returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	raw, ok, err := s.kv.Get(ctx, KeyPrefix+key)
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, nil
	}
	if rec.ExpiresAt <= s.nowFunc().Unix() {
		return nil, nil
	}
	return &rec, nil
}

// Done returns the write that records a completed request. Callers commit it in
// the same batch as the request's own writes; the batch fails with
// kv.ErrConflict if another request already recorded the key. The record
// expires from the backing store with the TTL window.
func (s *Store) Done(key, orderID string, status int, response any) (kv.Write, error) {
	body, err := json.Marshal(response)
	if err != nil {
		return kv.Write{}, fmt.Errorf("marshal response: %w", err)
	}
	now := s.nowFunc()
	expiresAt := now.Add(s.ttlWindow)
	rec := Record{
		IdempotencyKey: key,
		Status:         StatusDone,
		OrderID:        orderID,
		ResponseBody:   body,
		ResponseStatus: status,
		CreatedAt:      now,
		ExpiresAt:      expiresAt.Unix(),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return kv.Write{}, fmt.Errorf("marshal record: %w", err)
	}
	return kv.PutNew(KeyPrefix+key, string(b), expiresAt), nil
}
