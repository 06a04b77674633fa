package storefront

import (
	"context"

	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
	"github.com/imrishuroy/pizzafly-storefront/internal/tracking"
)

// LineView is one rendered cart row.
type LineView struct {
	Index        int     `json:"index"`
	Name         string  `json:"name"`
	DisplayPrice string  `json:"price"`
	UnitPrice    float64 `json:"unitPrice"`
	Image        string  `json:"image"`
	Quantity     int     `json:"qty"`
	LineTotal    string  `json:"lineTotal"`
}

// Summary is everything the cart panel shows.
type Summary struct {
	Lines    []LineView `json:"lines"`
	Count    int        `json:"count"`
	Subtotal string     `json:"subtotal"`
	Discount *string    `json:"discount,omitempty"`
	Total    string     `json:"total"`
	Points   int        `json:"points"`
}

// Summary renders the cart, pending discount and points balance.
func (e *Engine) Summary() Summary {
	lines := e.cart.Lines()
	views := make([]LineView, len(lines))
	for i, l := range lines {
		views[i] = LineView{
			Index:        i,
			Name:         l.Name,
			DisplayPrice: l.DisplayPrice,
			UnitPrice:    l.UnitPrice,
			Image:        l.Image,
			Quantity:     l.Quantity,
			LineTotal:    pricing.FormatPrice(l.Total()),
		}
	}

	subtotal := e.cart.Subtotal()
	s := Summary{
		Lines:    views,
		Count:    e.cart.Count(),
		Subtotal: pricing.FormatPrice(subtotal),
		Total:    pricing.FormatPrice(max(0, pricing.Round2(subtotal))),
		Points:   e.points.Balance(),
	}
	if d, ok := e.points.Discount(); ok {
		text := pricing.FormatPrice(d)
		s.Discount = &text
		s.Total = pricing.FormatPrice(max(0, pricing.Round2(subtotal-d)))
	}
	return s
}

// TrackingView is the order status panel.
type TrackingView struct {
	OrderID    string               `json:"orderId"`
	Total      string               `json:"total"`
	Stage      tracking.Stage       `json:"stage"`
	Status     string               `json:"status"`
	Indicators []tracking.Indicator `json:"indicators"`
	Delivered  bool                 `json:"delivered"`
}

// Tracking computes the active order's stage now. It fails with ErrNoOrder
// when there is no active order.
func (e *Engine) Tracking(ctx context.Context) (TrackingView, error) {
	o, err := e.orders.Active(ctx)
	if err != nil {
		return TrackingView{}, err
	}
	if o == nil {
		return TrackingView{}, ErrNoOrder
	}
	stage := tracking.CurrentStage(o.Created(), e.deps.Now())
	return TrackingView{
		OrderID:    o.ID,
		Total:      pricing.FormatPrice(o.Total),
		Stage:      stage,
		Status:     stage.Label(),
		Indicators: tracking.Indicators(stage),
		Delivered:  stage.Terminal(),
	}, nil
}
