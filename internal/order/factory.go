package order

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/pizzafly-storefront/internal/cart"
	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
	"github.com/imrishuroy/pizzafly-storefront/internal/validation"
)

// IDPrefix starts every order ID.
const IDPrefix = "PF-"

const idLength = 6

// ErrMissingField is returned when a checkout field is blank.
var ErrMissingField = errors.New("missing required field")

var validate = validation.New()

// Validate trims c and checks that every field is present.
func Validate(c Customer) (Customer, error) {
	c = Customer{
		Name:    strings.TrimSpace(c.Name),
		Address: strings.TrimSpace(c.Address),
		Phone:   strings.TrimSpace(c.Phone),
	}
	if err := validate.Struct(c); err != nil {
		if fields := validation.Fields(err); len(fields) > 0 {
			return c, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(fields, ", "))
		}
		return c, fmt.Errorf("validate customer: %w", err)
	}
	return c, nil
}

// NewID returns IDPrefix followed by six uppercase base-36 characters taken from
// a random UUID. Collisions are not checked.
func NewID() string {
	u := uuid.New()
	s := strings.ToUpper(new(big.Int).SetBytes(u[:]).Text(36))
	if len(s) < idLength {
		s = strings.Repeat("0", idLength-len(s)) + s
	}
	return IDPrefix + s[len(s)-idLength:]
}

// Build assembles an order. The total is max(0, subtotal - discount) rounded to
// cents and items are copied, so later cart changes cannot reach the order.
func Build(id string, c Customer, items []cart.Line, subtotal, discount float64, now time.Time) Order {
	snapshot := make([]cart.Line, len(items))
	copy(snapshot, items)

	return Order{
		ID:           id,
		CustomerName: c.Name,
		Address:      c.Address,
		Phone:        c.Phone,
		Total:        math.Max(0, pricing.Round2(subtotal-discount)),
		Items:        snapshot,
		CreatedAt:    now.UnixMilli(),
	}
}
