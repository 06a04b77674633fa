package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
)

// ErrLineNotFound is returned for an index outside the cart.
var ErrLineNotFound = errors.New("cart line not found")

// Store holds the cart lines for one storefront scope. Mutations change the
// in-memory cart and report a Delta; Write and Save produce the persisted form,
// so a caller can commit the cart together with other keys.
type Store struct {
	kv    kv.Store
	log   *zap.Logger
	lines []Line
}

// NewStore returns an empty Store backed by store. Call Load to read persisted state.
func NewStore(store kv.Store, log *zap.Logger) *Store {
	return &Store{
		kv:    store,
		log:   logging.OrNop(log),
		lines: []Line{},
	}
}

// Load replaces the in-memory cart with the persisted one. Corrupt data degrades
// to an empty or normalized cart and is written back; only backend failures are
// returned.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, kv.KeyCart)
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		s.lines = []Line{}
		return nil
	}

	lines, clean := Decode(raw)
	s.lines = lines
	if clean {
		return nil
	}

	s.log.Warn("normalized corrupt cart", zap.Int("lines", len(lines)))
	if err := s.Save(ctx); err != nil {
		// the normalized cart is still usable in memory
		s.log.Warn("failed to persist normalized cart", zap.Error(err))
	}
	return nil
}

// Add puts one unit of a product in the cart, merging into a matching line.
func (s *Store) Add(name, displayPrice string, unitPrice float64, image string) Delta {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	unitPrice = pricing.ParsePrice(unitPrice)
	if unitPrice < 0 {
		unitPrice = 0
	}
	if displayPrice == "" {
		displayPrice = pricing.DisplayPrice(unitPrice)
	}

	if i := s.Find(name, unitPrice); i >= 0 {
		s.lines[i].Quantity++
		return Delta{UnitPrice: s.lines[i].UnitPrice, Units: 1}
	}
	s.lines = append(s.lines, Line{
		Name:         name,
		DisplayPrice: displayPrice,
		UnitPrice:    unitPrice,
		Image:        image,
		Quantity:     1,
	})
	return Delta{UnitPrice: unitPrice, Units: 1}
}

// Find returns the index of the line matching (name, unitPrice), or -1.
func (s *Store) Find(name string, unitPrice float64) int {
	for i, l := range s.lines {
		if l.Matches(name, unitPrice) {
			return i
		}
	}
	return -1
}

// Increment adds one unit to the line at i.
func (s *Store) Increment(i int) (Delta, error) {
	if i < 0 || i >= len(s.lines) {
		return Delta{}, fmt.Errorf("increment %d: %w", i, ErrLineNotFound)
	}
	s.lines[i].Quantity++
	return Delta{UnitPrice: s.lines[i].UnitPrice, Units: 1}, nil
}

// Decrement removes one unit from the line at i, dropping the line when it
// reaches zero. The Delta carries the line's unit price as it was before removal.
func (s *Store) Decrement(i int) (Delta, error) {
	if i < 0 || i >= len(s.lines) {
		return Delta{}, fmt.Errorf("decrement %d: %w", i, ErrLineNotFound)
	}
	d := Delta{UnitPrice: s.lines[i].UnitPrice, Units: -1}
	s.lines[i].Quantity--
	if s.lines[i].Quantity <= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
	return d, nil
}

// Subtotal is the sum of every line total.
func (s *Store) Subtotal() float64 {
	var sum float64
	for _, l := range s.lines {
		sum += l.Total()
	}
	return sum
}

// Count is the number of units in the cart, shown on the cart badge.
func (s *Store) Count() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Len is the number of distinct lines.
func (s *Store) Len() int { return len(s.lines) }

// Lines returns a copy of the cart lines.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Snapshot returns the lines to be frozen into an order. Line holds no
// references, so the copy shares nothing with the cart.
func (s *Store) Snapshot() []Line { return s.Lines() }

// Clear empties the cart.
func (s *Store) Clear() {
	s.lines = []Line{}
}

// Write returns the kv write that persists the current cart.
func (s *Store) Write() (kv.Write, error) {
	b, err := json.Marshal(s.lines)
	if err != nil {
		return kv.Write{}, fmt.Errorf("marshal cart: %w", err)
	}
	return kv.Put(kv.KeyCart, string(b)), nil
}

// Save persists the current cart on its own.
func (s *Store) Save(ctx context.Context) error {
	w, err := s.Write()
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, w); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
