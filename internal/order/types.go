// Package order defines the immutable order record created at checkout and the
// single persisted "active order".
package order

import (
	"time"

	"github.com/imrishuroy/pizzafly-storefront/internal/cart"
)

// Order is the checkout snapshot. It is never modified after creation; a new
// checkout replaces it. The JSON shape is the persisted "activeOrder" format.
type Order struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"name"`
	Address      string      `json:"address"`
	Phone        string      `json:"phone"`
	Total        float64     `json:"total"`
	Items        []cart.Line `json:"items"`
	CreatedAt    int64       `json:"createdAt"` // ms since epoch
}

// Created returns CreatedAt as a time.
func (o Order) Created() time.Time {
	return time.UnixMilli(o.CreatedAt)
}

// Customer holds the checkout form fields.
type Customer struct {
	Name    string `json:"name" validate:"notblank"`
	Address string `json:"address" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
}
