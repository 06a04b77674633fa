// Package cart owns the ordered list of cart lines and their persisted form.
package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
)

// DefaultName labels a line that arrived without a usable name.
const DefaultName = "Item"

// priceTolerance is how close two unit prices must be to count as the same product.
const priceTolerance = 1e-6

// Line is one cart entry. The JSON shape is the persisted "cart" format.
type Line struct {
	Name         string  `json:"name"`
	DisplayPrice string  `json:"price"`
	UnitPrice    float64 `json:"unitPrice"`
	Image        string  `json:"image"`
	Quantity     int     `json:"qty"`
}

// Total is UnitPrice × Quantity.
func (l Line) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Matches reports whether l is the same product as (name, unitPrice): names are
// compared trimmed and case-insensitively, prices within 1e-6.
func (l Line) Matches(name string, unitPrice float64) bool {
	return strings.EqualFold(strings.TrimSpace(l.Name), strings.TrimSpace(name)) &&
		math.Abs(l.UnitPrice-unitPrice) < priceTolerance
}

// Delta is the effect of a single-unit cart mutation, consumed by the points ledger.
// Units is +1 for an added unit and -1 for a removed one.
type Delta struct {
	UnitPrice float64
	Units     int
}

// Decode parses a persisted cart and normalizes every element. Data that is not
// a JSON array yields an empty cart; ok is false when anything had to be
// discarded or coerced.
func Decode(raw string) (lines []Line, ok bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return []Line{}, false
	}
	lines = make([]Line, 0, len(elems))
	ok = true
	for _, e := range elems {
		l, clean := normalize(e)
		if !clean {
			ok = false
		}
		lines = append(lines, l)
	}
	return lines, ok
}

// normalize coerces one persisted element into a valid Line.
func normalize(raw json.RawMessage) (Line, bool) {
	fields := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	clean := dec.Decode(&fields) == nil && fields != nil

	l := Line{}
	name, _ := fields["name"].(string)
	if name == "" {
		name, clean = DefaultName, false
	}
	l.Name = name

	priceText, isText := fields["price"].(string)
	priceNum := pricing.ParsePrice(fields["price"])

	if n, isNum := number(fields["unitPrice"]); isNum {
		l.UnitPrice = n
	} else {
		l.UnitPrice, clean = priceNum, false
	}
	if l.UnitPrice < 0 {
		l.UnitPrice, clean = 0, false
	}

	if isText && priceText != "" {
		l.DisplayPrice = priceText
	} else {
		l.DisplayPrice, clean = pricing.DisplayPrice(l.UnitPrice), false
	}

	if img, isStr := fields["image"].(string); isStr {
		l.Image = img
	} else if fields["image"] != nil {
		clean = false
	}

	l.Quantity = 1
	if q, isNum := number(fields["qty"]); isNum && q >= 1 && q <= math.MaxInt32 {
		l.Quantity = int(q)
	} else {
		clean = false
	}
	return l, clean
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
