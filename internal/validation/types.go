package validation

// AddItemRequest is a product card's add-to-cart payload. Price is the card's
// display text, e.g. "$12.99".
type AddItemRequest struct {
	Name  string `json:"name" validate:"notblank"`
	Price string `json:"price" validate:"notblank"`
	Image string `json:"image"`
}

// CheckoutRequest is the payload for POST /checkout.
type CheckoutRequest struct {
	Name    string `json:"name" validate:"notblank"`
	Address string `json:"address" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
}

// SignInRequest is the payload for POST /auth/sign-in. No credential is verified.
type SignInRequest struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
	Next     string `json:"next,omitempty"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
	Next     string `json:"next,omitempty"`
}

// BuildChoice is one builder selection.
type BuildChoice struct {
	Name  string  `json:"name" validate:"notblank"`
	Price float64 `json:"price" validate:"gte=0"`
}

// BuildRequest is the pizza builder configuration.
type BuildRequest struct {
	Size     BuildChoice `json:"size"`
	Crust    BuildChoice `json:"crust"`
	Sauce    BuildChoice `json:"sauce"`
	Cheese   BuildChoice `json:"cheese"`
	Toppings []string    `json:"toppings" validate:"max=20,dive,notblank"`
}
