package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToppingPrice is charged once per selected topping.
const ToppingPrice = 1.25

// Choice is one builder selection: a label and the amount it adds to the pizza.
type Choice struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// BuildOptions is the configurator state. Size.Price is the base price; the
// crust, sauce and cheese prices are upcharges.
type BuildOptions struct {
	Size     Choice   `json:"size"`
	Crust    Choice   `json:"crust"`
	Sauce    Choice   `json:"sauce"`
	Cheese   Choice   `json:"cheese"`
	Toppings []string `json:"toppings"`
}

// Quote is what the builder card shows and what add-to-cart reads from it.
type Quote struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Summary      string  `json:"summary"`
	Total        float64 `json:"total"`
	DisplayPrice string  `json:"display_price"`
}

// QuoteBuild prices a custom pizza. It is pure and never fails.
func QuoteBuild(opts BuildOptions) Quote {
	total := decimal.NewFromFloat(finite(opts.Size.Price)).
		Add(decimal.NewFromFloat(finite(opts.Crust.Price))).
		Add(decimal.NewFromFloat(finite(opts.Sauce.Price))).
		Add(decimal.NewFromFloat(finite(opts.Cheese.Price))).
		Add(decimal.NewFromFloat(ToppingPrice).Mul(decimal.NewFromInt(int64(len(opts.Toppings)))))

	n := total.Round(2).InexactFloat64()
	tops := len(opts.Toppings)
	return Quote{
		Title:        fmt.Sprintf("Custom Pizza — %s (%d toppings)", opts.Size.Name, tops),
		Description:  fmt.Sprintf("%s • %s • %s", opts.Crust.Name, opts.Sauce.Name, opts.Cheese.Name),
		Summary:      fmt.Sprintf("%s • %s • %s • %s • %d toppings", opts.Size.Name, opts.Crust.Name, opts.Sauce.Name, opts.Cheese.Name, tops),
		Total:        n,
		DisplayPrice: DisplayPrice(n),
	}
}

func finite(n float64) float64 {
	return ParsePrice(n)
}
