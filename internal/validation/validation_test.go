package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCheckoutRequest_Valid(t *testing.T) {
	v := New()

	req := CheckoutRequest{Name: "Ada", Address: "1 Crust Way", Phone: "555-0100"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCheckoutRequest_BlankFields(t *testing.T) {
	v := New()

	req := CheckoutRequest{Name: "Ada", Address: "   ", Phone: ""}
	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation errors for blank fields, got nil")
	}
	fields := Fields(err)
	if len(fields) != 2 || fields[0] != "address" || fields[1] != "phone" {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestBuildRequest_DuplicateToppings(t *testing.T) {
	v := New()

	req := BuildRequest{
		Size:     BuildChoice{Name: "Medium", Price: 11.99},
		Crust:    BuildChoice{Name: "Classic"},
		Sauce:    BuildChoice{Name: "Tomato"},
		Cheese:   BuildChoice{Name: "Mozzarella"},
		Toppings: []string{"Olives", "olives "},
	}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected duplicate topping error, got nil")
	}

	req.Toppings = []string{"Olives", "Basil"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestBuildRequest_NegativeUpcharge(t *testing.T) {
	v := New()

	req := BuildRequest{
		Size:   BuildChoice{Name: "Small", Price: 8},
		Crust:  BuildChoice{Name: "Thin", Price: -1},
		Sauce:  BuildChoice{Name: "Tomato"},
		Cheese: BuildChoice{Name: "Mozzarella"},
	}
	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected error for negative price")
	}
	if m := validationErrorsToMap(err); m["crust.price"] != "gte" {
		t.Fatalf("unexpected error map: %v", m)
	}
}

func TestBindAndValidate_WritesBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"email":"a@b.c","password":" "}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req SignInRequest
	if err := BindAndValidate(c, &req, New()); err == nil {
		t.Fatal("expected error")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"password":"notblank"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
