// Package storefront composes the cart, points ledger and active order of one
// session scope. Every operation commits all of its key writes in a single
// kv.Store.Apply batch, so a reload never sees a cart change without its
// points adjustment.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
	"github.com/imrishuroy/pizzafly-storefront/internal/cart"
	"github.com/imrishuroy/pizzafly-storefront/internal/idempotency"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
	"github.com/imrishuroy/pizzafly-storefront/internal/points"
	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
	"github.com/imrishuroy/pizzafly-storefront/internal/tracking"
)

var (
	ErrEmptyScope = errors.New("storefront: empty scope")
	ErrNoOrder    = errors.New("no active order")
)

// Notifier is told about every committed order. *aws.Publisher satisfies it.
type Notifier interface {
	OrderPlaced(ctx context.Context, msg aws.OrderPlacedMessage) error
}

// Recorder receives business metrics. *aws.Metrics satisfies it.
type Recorder interface {
	OrderPlaced(ctx context.Context, total float64) error
	PointsRedeemed(ctx context.Context, points int, discount float64) error
}

// Deps are the collaborators shared by every Engine. Only Store is required.
type Deps struct {
	Store    kv.Store
	Log      *zap.Logger
	Notifier Notifier
	Metrics  Recorder
	Tracking *tracking.Registry
	Renderer tracking.Renderer
	Now      func() time.Time
	NewID    func() string

	// IdempotencyTTL is how long checkout keys are remembered.
	IdempotencyTTL time.Duration
}

// Engine is the storefront state of one scope. It is not safe for concurrent
// use; callers serialize operations per scope.
type Engine struct {
	scope  string
	store  kv.Store
	cart   *cart.Store
	points *points.Ledger
	orders *order.Store
	idem   *idempotency.Store
	deps   Deps
	log    *zap.Logger
}

// Open loads the scope's cart and ledger.
func Open(ctx context.Context, deps Deps, scope string) (*Engine, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = order.NewID
	}
	log := logging.OrNop(deps.Log).With(zap.String("scope", scope))
	store := kv.WithScope(deps.Store, scope)

	e := &Engine{
		scope:  scope,
		store:  store,
		cart:   cart.NewStore(store, log),
		points: points.NewLedger(store, log),
		orders: order.NewStore(store, log),
		idem:   idempotency.NewStore(store, deps.IdempotencyTTL),
		deps:   deps,
		log:    log,
	}
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Scope is the session scope this engine operates on.
func (e *Engine) Scope() string { return e.scope }

// Load re-reads cart and ledger from the store.
func (e *Engine) Load(ctx context.Context) error {
	if err := e.cart.Load(ctx); err != nil {
		return err
	}
	return e.points.Load(ctx)
}

// AddToCart adds one unit of a product card, pricing it from its price text.
func (e *Engine) AddToCart(ctx context.Context, name, priceText, image string) error {
	return e.AddItem(ctx, name, priceText, pricing.ParsePrice(priceText), image)
}

// AddItem adds one unit and awards floor(unitPrice) points.
func (e *Engine) AddItem(ctx context.Context, name, displayPrice string, unitPrice float64, image string) error {
	d := e.cart.Add(name, displayPrice, unitPrice, image)
	return e.applyDelta(ctx, d)
}

// AddBuild adds a custom pizza quote to the cart.
func (e *Engine) AddBuild(ctx context.Context, q pricing.Quote) error {
	return e.AddItem(ctx, q.Title, q.DisplayPrice, q.Total, "")
}

// Increment adds one unit to line i.
func (e *Engine) Increment(ctx context.Context, i int) error {
	d, err := e.cart.Increment(i)
	if err != nil {
		return err
	}
	return e.applyDelta(ctx, d)
}

// Decrement removes one unit from line i, dropping the line at zero. The points
// come back off using the line's stored unit price.
func (e *Engine) Decrement(ctx context.Context, i int) error {
	d, err := e.cart.Decrement(i)
	if err != nil {
		return err
	}
	return e.applyDelta(ctx, d)
}

func (e *Engine) applyDelta(ctx context.Context, d cart.Delta) error {
	e.points.Apply(d)
	cw, err := e.cart.Write()
	if err != nil {
		e.reload(ctx)
		return err
	}
	return e.commit(ctx, "apply cart delta", cw, e.points.BalanceWrite())
}

// Redeem turns the whole balance into a pending discount.
func (e *Engine) Redeem(ctx context.Context) (float64, error) {
	spent := e.points.Balance()
	discount, err := e.points.Redeem()
	if err != nil {
		return 0, err
	}
	if err := e.commit(ctx, "redeem points", e.points.Writes()...); err != nil {
		return 0, err
	}
	e.log.Info("points redeemed", zap.Int("points", spent), zap.Float64("discount", discount))
	if e.deps.Metrics != nil {
		if err := e.deps.Metrics.PointsRedeemed(ctx, spent, discount); err != nil {
			e.log.Warn("record redeem metric", zap.Error(err))
		}
	}
	return discount, nil
}

// Checkout freezes the cart into the new active order. The writes are
// committed in order: active order, discount removal, points award, empty cart.
// A customer with a blank field fails with order.ErrMissingField and nothing
// changes.
func (e *Engine) Checkout(ctx context.Context, c order.Customer) (order.Order, error) {
	return e.checkout(ctx, c, nil)
}

// CheckoutOnce is Checkout guarded by a client idempotency key. The first call
// for a key commits the order together with a record of it; later calls with
// the same key return that order with replayed set and change nothing.
func (e *Engine) CheckoutOnce(ctx context.Context, c order.Customer, key string) (o order.Order, replayed bool, err error) {
	if err := idempotency.ValidateKey(key); err != nil {
		return order.Order{}, false, err
	}
	if o, ok, err := e.replay(ctx, key); err != nil || ok {
		return o, ok, err
	}

	o, err = e.checkout(ctx, c, func(o order.Order) (kv.Write, error) {
		return e.idem.Done(key, o.ID, http.StatusCreated, o)
	})
	if errors.Is(err, kv.ErrConflict) {
		// another request committed this key between the lookup and the commit
		if prior, ok, rerr := e.replay(ctx, key); rerr == nil && ok {
			return prior, true, nil
		}
	}
	return o, false, err
}

// replay returns the order recorded under key, if any.
func (e *Engine) replay(ctx context.Context, key string) (order.Order, bool, error) {
	rec, err := e.idem.Get(ctx, key)
	if err != nil || rec == nil {
		return order.Order{}, false, err
	}
	var o order.Order
	if err := json.Unmarshal(rec.ResponseBody, &o); err != nil {
		return order.Order{}, false, fmt.Errorf("decode replayed order: %w", err)
	}
	e.log.Info("checkout replayed", zap.String("order_id", o.ID))
	return o, true, nil
}

func (e *Engine) checkout(ctx context.Context, c order.Customer, record func(order.Order) (kv.Write, error)) (order.Order, error) {
	c, err := order.Validate(c)
	if err != nil {
		return order.Order{}, err
	}

	o := order.Build(e.deps.NewID(), c, e.cart.Snapshot(), e.cart.Subtotal(), e.points.PendingDiscount(), e.deps.Now())
	writes := make([]kv.Write, 0, 5)
	ow, err := e.orders.Write(o)
	if err != nil {
		return order.Order{}, err
	}
	writes = append(writes, ow)

	earned := e.points.Settle(o.Total)
	e.cart.Clear()
	cw, err := e.cart.Write()
	if err != nil {
		e.reload(ctx)
		return order.Order{}, err
	}
	writes = append(writes, e.points.DiscountWrite(), e.points.BalanceWrite(), cw)

	if record != nil {
		rw, err := record(o)
		if err != nil {
			e.reload(ctx)
			return order.Order{}, err
		}
		writes = append(writes, rw)
	}
	if err := e.commit(ctx, "checkout", writes...); err != nil {
		return order.Order{}, err
	}

	e.log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.Float64("total", o.Total),
		zap.Int("points_earned", earned))
	e.afterCheckout(ctx, o)
	return o, nil
}

func (e *Engine) afterCheckout(ctx context.Context, o order.Order) {
	if e.deps.Notifier != nil {
		msg := aws.OrderPlacedMessage{
			OrderID:       o.ID,
			Scope:         e.scope,
			Total:         o.Total,
			CreatedAt:     o.CreatedAt,
			CorrelationID: CorrelationID(ctx),
		}
		if err := e.deps.Notifier.OrderPlaced(ctx, msg); err != nil {
			e.log.Warn("notify order placed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	if e.deps.Metrics != nil {
		if err := e.deps.Metrics.OrderPlaced(ctx, o.Total); err != nil {
			e.log.Warn("record order metric", zap.Error(err))
		}
	}
	if e.deps.Tracking != nil {
		e.deps.Tracking.Track(e.scope, o, e.renderer())
	}
}

type correlationKey struct{}

// WithCorrelationID tags ctx so order notifications sent under it carry id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id set by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func (e *Engine) renderer() tracking.Renderer {
	if e.deps.Renderer != nil {
		return e.deps.Renderer
	}
	return tracking.LogRenderer(e.log)
}

// ActiveOrder returns the scope's active order, or nil.
func (e *Engine) ActiveOrder(ctx context.Context) (*order.Order, error) {
	return e.orders.Active(ctx)
}

// ResumeTracking restarts the re-check loop for the active order, as on page
// reopen. It needs a tracking registry.
func (e *Engine) ResumeTracking(ctx context.Context) (*tracking.Task, error) {
	if e.deps.Tracking == nil {
		return nil, errors.New("storefront: no tracking registry")
	}
	o, err := e.orders.Active(ctx)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNoOrder
	}
	return e.deps.Tracking.Track(e.scope, *o, e.renderer()), nil
}

// commit applies writes atomically. On failure the in-memory state is
// reloaded so it matches what the store still holds.
func (e *Engine) commit(ctx context.Context, op string, writes ...kv.Write) error {
	if err := e.store.Apply(ctx, writes...); err != nil {
		e.log.Error("commit failed", zap.String("op", op), zap.Error(err))
		e.reload(ctx)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (e *Engine) reload(ctx context.Context) {
	if err := e.Load(ctx); err != nil {
		e.log.Warn("reload after failed commit", zap.Error(err))
	}
}
