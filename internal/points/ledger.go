// Package points keeps the reward-points balance and the one-shot cart discount
// that redeeming points produces.
package points

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/cart"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
)

const (
	// MinRedeemPoints is the smallest balance that can be redeemed.
	MinRedeemPoints = 50
	// PointValue is the discount, in dollars, one point is worth.
	PointValue = 0.10
	// MaxBalance caps both a single award and the stored balance.
	MaxBalance = math.MaxInt32
)

// ErrInsufficientPoints is returned by Redeem when the balance is below MinRedeemPoints.
var ErrInsufficientPoints = errors.New("insufficient points")

// Ledger holds the points balance and the pending discount for one scope.
// A nil discount means no discount is pending; it is persisted as an absent key.
type Ledger struct {
	kv       kv.Store
	log      *zap.Logger
	balance  int
	discount *float64
}

// NewLedger returns a zero-balance Ledger backed by store.
func NewLedger(store kv.Store, log *zap.Logger) *Ledger {
	return &Ledger{kv: store, log: logging.OrNop(log)}
}

// Load reads the balance and pending discount. Unparsable values degrade to a
// zero balance and no discount.
func (l *Ledger) Load(ctx context.Context) error {
	rawPoints, hasPoints, err := l.kv.Get(ctx, kv.KeyRewardPoints)
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	rawDiscount, hasDiscount, err := l.kv.Get(ctx, kv.KeyCartDiscount)
	if err != nil {
		return fmt.Errorf("load discount: %w", err)
	}

	l.balance = parseBalance(rawPoints)
	l.discount = nil
	if hasDiscount {
		if d, ok := parseDiscount(rawDiscount); ok {
			l.discount = &d
		} else {
			l.log.Warn("ignoring corrupt cart discount", zap.String("value", rawDiscount))
		}
	}

	if !hasPoints || rawPoints != strconv.Itoa(l.balance) {
		if hasPoints {
			l.log.Warn("normalized corrupt points balance", zap.String("value", rawPoints), zap.Int("balance", l.balance))
		}
		if err := l.kv.Apply(ctx, l.BalanceWrite()); err != nil {
			l.log.Warn("failed to persist normalized balance", zap.Error(err))
		}
	}
	return nil
}

// Balance is the current points balance.
func (l *Ledger) Balance() int { return l.balance }

// Discount returns the pending discount and whether one is set.
func (l *Ledger) Discount() (float64, bool) {
	if l.discount == nil {
		return 0, false
	}
	return *l.discount, true
}

// PendingDiscount is the pending discount, or 0 when none is set.
func (l *Ledger) PendingDiscount() float64 {
	d, _ := l.Discount()
	return d
}

// Apply adjusts the balance for a single-unit cart change: an added unit earns
// floor(unitPrice) points, a removed unit takes them back without going below zero.
func (l *Ledger) Apply(d cart.Delta) {
	l.balance = addPoints(l.balance, floorPoints(d.UnitPrice), d.Units)
}

// Redeem converts the whole balance into a pending discount of PointValue per
// point. The balance must be at least MinRedeemPoints.
func (l *Ledger) Redeem() (float64, error) {
	if l.balance < MinRedeemPoints {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientPoints, l.balance, MinRedeemPoints)
	}
	discount := decimal.NewFromInt(int64(l.balance)).
		Mul(decimal.NewFromFloat(PointValue)).
		Round(2).
		InexactFloat64()
	l.discount = &discount
	l.balance = 0
	return discount, nil
}

// Settle awards floor(total) points for a placed order and clears the pending discount.
// It returns the points earned.
func (l *Ledger) Settle(total float64) int {
	earned := floorPoints(total)
	l.balance = addPoints(l.balance, earned, 1)
	l.discount = nil
	return earned
}

// Writes returns the kv writes that persist the balance and the discount marker.
func (l *Ledger) Writes() []kv.Write {
	return []kv.Write{l.BalanceWrite(), l.DiscountWrite()}
}

// Save persists the ledger on its own.
func (l *Ledger) Save(ctx context.Context) error {
	if err := l.kv.Apply(ctx, l.Writes()...); err != nil {
		return fmt.Errorf("save points: %w", err)
	}
	return nil
}

// BalanceWrite persists the balance as a decimal string.
func (l *Ledger) BalanceWrite() kv.Write {
	return kv.Put(kv.KeyRewardPoints, strconv.Itoa(l.balance))
}

// DiscountWrite persists the pending discount, or deletes the key when none is set.
func (l *Ledger) DiscountWrite() kv.Write {
	if l.discount == nil {
		return kv.Remove(kv.KeyCartDiscount)
	}
	return kv.Put(kv.KeyCartDiscount, pricing.FormatPrice(*l.discount))
}

func floorPoints(amount float64) int {
	if math.IsNaN(amount) || amount <= 0 {
		return 0
	}
	if amount >= MaxBalance {
		return MaxBalance
	}
	return int(math.Floor(amount))
}

// addPoints returns balance + pts*units saturated to [0, MaxBalance]. balance
// and pts must already lie in that range.
func addPoints(balance, pts, units int) int {
	switch {
	case pts == 0 || units == 0:
		return balance
	case units > 0:
		if units > (MaxBalance-balance)/pts {
			return MaxBalance
		}
	case units < -(balance / pts):
		return 0
	}
	return balance + pts*units
}

// parseBalance reads the leading integer of s; anything else, or a negative
// value, is a zero balance. Balances above MaxBalance are capped.
func parseBalance(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return min(n, MaxBalance)
}

func parseDiscount(s string) (float64, bool) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, false
	}
	return d, true
}
