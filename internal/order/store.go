package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
)

// Store reads and writes the single active order of a scope.
type Store struct {
	kv  kv.Store
	log *zap.Logger
}

// NewStore returns a Store backed by store.
func NewStore(store kv.Store, log *zap.Logger) *Store {
	return &Store{kv: store, log: logging.OrNop(log)}
}

// Active returns the active order, or (nil, nil) when there is none. A corrupt
// record counts as none.
func (s *Store) Active(ctx context.Context) (*Order, error) {
	raw, ok, err := s.kv.Get(ctx, kv.KeyActiveOrder)
	if err != nil {
		return nil, fmt.Errorf("load active order: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var o Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil || o.ID == "" || o.CreatedAt <= 0 {
		s.log.Warn("ignoring corrupt active order", zap.Error(err))
		return nil, nil
	}
	return &o, nil
}

// Write returns the kv write that makes o the active order, replacing any other.
func (s *Store) Write(o Order) (kv.Write, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return kv.Write{}, fmt.Errorf("marshal order: %w", err)
	}
	return kv.Put(kv.KeyActiveOrder, string(b)), nil
}

// Save makes o the active order.
func (s *Store) Save(ctx context.Context, o Order) error {
	w, err := s.Write(o)
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, w); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}
