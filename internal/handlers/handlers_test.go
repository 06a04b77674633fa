package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
	"github.com/imrishuroy/pizzafly-storefront/internal/storefront"
)

var testNow = time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*gin.Engine, *kv.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := kv.NewMemory()
	r := gin.New()
	RegisterStorefrontRoutes(r, HandlerConfig{
		Store: store,
		Now:   func() time.Time { return testNow },
		NewID: func() string { return "PF-HTTP01" },
	})
	return r, store
}

func do(t *testing.T, r http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestSessionHeaderIsMinted(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/cart", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(SessionHeader) == "" {
		t.Fatalf("expected a minted session id")
	}
}

func TestInvalidSessionHeaderIsRejected(t *testing.T) {
	r, store := newTestRouter(t)
	for _, path := range []string{"/cart", "/auth/me"} {
		w := do(t, r, http.MethodGet, path, "sess/idem:k", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
		if got := decode[map[string]string](t, w)["error"]; got != "invalid_session" {
			t.Fatalf("%s: unexpected error %q", path, got)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("rejected requests must not write, got %d keys", store.Len())
	}
}

func TestCartRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	const s = "sess-cart"

	w := do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Margherita", "price": "$12.99", "image": "m.png"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: %d %s", w.Code, w.Body.String())
	}
	do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Margherita", "price": "$12.99"})
	w = do(t, r, http.MethodPost, "/cart/items/0/increment", s, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("increment: %d", w.Code)
	}
	sum := decode[storefront.Summary](t, w)
	if len(sum.Lines) != 1 || sum.Lines[0].Quantity != 3 || sum.Points != 36 || sum.Count != 3 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	w = do(t, r, http.MethodPost, "/cart/items/0/decrement", s, nil)
	if got := decode[storefront.Summary](t, w); got.Points != 24 {
		t.Fatalf("expected 24 points, got %d", got.Points)
	}

	if w = do(t, r, http.MethodPost, "/cart/items/7/decrement", s, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w = do(t, r, http.MethodPost, "/cart/items/x/increment", s, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w = do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": " ", "price": "$1"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	r, _ := newTestRouter(t)
	do(t, r, http.MethodPost, "/cart/items", "a", gin.H{"name": "Wings", "price": "$8.00"})

	w := do(t, r, http.MethodGet, "/cart", "b", nil)
	if got := decode[storefront.Summary](t, w); len(got.Lines) != 0 || got.Points != 0 {
		t.Fatalf("session b sees session a's cart: %+v", got)
	}
}

func TestRedeemRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	const s = "sess-redeem"

	do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Box", "price": "$49.00"})
	if w := do(t, r, http.MethodPost, "/points/redeem", s, nil); w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Dip", "price": "$1.00"})
	w := do(t, r, http.MethodPost, "/points/redeem", s, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("redeem: %d %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		Discount string             `json:"discount"`
		Cart     storefront.Summary `json:"cart"`
	}](t, w)
	if body.Discount != "5.00" || body.Cart.Points != 0 || body.Cart.Total != "45.00" {
		t.Fatalf("unexpected redeem response %+v", body)
	}
}

func TestBuilderRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	build := gin.H{
		"size":     gin.H{"name": "Large", "price": 14.99},
		"crust":    gin.H{"name": "Thin", "price": 1.5},
		"sauce":    gin.H{"name": "Pesto", "price": 0.75},
		"cheese":   gin.H{"name": "Vegan", "price": 1},
		"toppings": []string{"Olives", "Basil"},
	}

	w := do(t, r, http.MethodPost, "/builder/quote", "sess-b", build)
	if w.Code != http.StatusOK {
		t.Fatalf("quote: %d %s", w.Code, w.Body.String())
	}
	q := decode[map[string]any](t, w)
	if q["total"] != 20.74 {
		t.Fatalf("expected total 20.74, got %v", q["total"])
	}

	build["toppings"] = []string{"Olives", "olives"}
	if w = do(t, r, http.MethodPost, "/builder/quote", "sess-b", build); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate toppings: expected 400, got %d", w.Code)
	}

	build["toppings"] = []string{"Olives"}
	w = do(t, r, http.MethodPost, "/builder/add", "sess-b", build)
	if w.Code != http.StatusCreated {
		t.Fatalf("add build: %d %s", w.Code, w.Body.String())
	}
	cart := decode[struct {
		Cart storefront.Summary `json:"cart"`
	}](t, w).Cart
	if len(cart.Lines) != 1 || cart.Points != 19 {
		t.Fatalf("unexpected cart %+v", cart)
	}
}

func TestCheckoutRequiresSession(t *testing.T) {
	r, store := newTestRouter(t)
	const s = "sess-gate"
	do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Pizza", "price": "$10"})

	customer := gin.H{"name": "Ada", "address": "1 Main St", "phone": "555"}
	w := do(t, r, http.MethodPost, "/checkout", s, customer)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["error"] != "sign_in_required" || body["next"] != "./order.html" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok, _ := kv.WithScope(store, s).Get(t.Context(), kv.KeyActiveOrder); ok {
		t.Fatalf("gated checkout must not create an order")
	}

	if w = do(t, r, http.MethodPost, "/auth/guest", s, nil); w.Code != http.StatusOK {
		t.Fatalf("guest: %d", w.Code)
	}
	if w = do(t, r, http.MethodPost, "/checkout", s, gin.H{"name": "Ada", "address": "", "phone": "555"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank address, got %d", w.Code)
	}

	w = do(t, r, http.MethodPost, "/checkout", s, customer)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	o := decode[order.Order](t, w)
	if o.ID != "PF-HTTP01" || o.Total != 10 || o.CreatedAt != testNow.UnixMilli() {
		t.Fatalf("unexpected order %+v", o)
	}

	w = do(t, r, http.MethodGet, "/orders/active", s, nil)
	if got := decode[order.Order](t, w); got.ID != o.ID {
		t.Fatalf("active order mismatch: %+v", got)
	}
	w = do(t, r, http.MethodGet, "/cart", s, nil)
	if got := decode[storefront.Summary](t, w); len(got.Lines) != 0 || got.Points != 20 {
		t.Fatalf("expected empty cart and 20 points, got %+v", got)
	}
}

func TestTrackingRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	const s = "sess-track"

	if w := do(t, r, http.MethodGet, "/orders/active/tracking", s, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	do(t, r, http.MethodPost, "/auth/guest", s, nil)
	do(t, r, http.MethodPost, "/checkout", s, gin.H{"name": "A", "address": "B", "phone": "C"})

	w := do(t, r, http.MethodGet, "/orders/active/tracking", s, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tracking: %d", w.Code)
	}
	view := decode[storefront.TrackingView](t, w)
	if view.OrderID != "PF-HTTP01" || view.Status != "Received" || len(view.Indicators) != 5 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestAuthRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	const s = "sess-auth"

	w := do(t, r, http.MethodPost, "/auth/sign-in", s, gin.H{"email": "ada@example.com", "password": "x", "next": "order"})
	if w.Code != http.StatusOK {
		t.Fatalf("sign-in: %d %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Next string `json:"next"`
	}](t, w)
	if body.User.Name != "ada" || body.Next != "./order.html" {
		t.Fatalf("unexpected sign-in response %+v", body)
	}

	if w = do(t, r, http.MethodPost, "/auth/sign-in", s, gin.H{"email": "ada@example.com"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if w = do(t, r, http.MethodPost, "/auth/register", s, gin.H{"name": "Ada", "email": "a@b.c", "password": "pw"}); w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/auth/me", s, nil)
	if me := decode[map[string]any](t, w); me["present"] != true {
		t.Fatalf("expected a session, got %v", me)
	}
	if w = do(t, r, http.MethodPost, "/auth/sign-out", s, nil); w.Code != http.StatusNoContent {
		t.Fatalf("sign-out: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/auth/me", s, nil)
	if me := decode[map[string]any](t, w); me["present"] != false {
		t.Fatalf("expected no session, got %v", me)
	}
}

func TestSessionLocks(t *testing.T) {
	locks := newSessionLocks()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("s")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
	if locks.size() != 0 {
		t.Fatalf("locks leaked: %d", locks.size())
	}
}

func TestCheckoutIdempotencyKey(t *testing.T) {
	r, _ := newTestRouter(t)
	const s = "sess-idem"
	do(t, r, http.MethodPost, "/auth/guest", s, nil)
	do(t, r, http.MethodPost, "/cart/items", s, gin.H{"name": "Pizza", "price": "$10"})

	checkout := func() *httptest.ResponseRecorder {
		body, _ := json.Marshal(gin.H{"name": "A", "address": "B", "phone": "C"})
		req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SessionHeader, s)
		req.Header.Set("Idempotency-Key", "retry-me")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := checkout()
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	second := checkout()
	if second.Code != http.StatusOK || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("retry: %d %v", second.Code, second.Header())
	}
	if decode[order.Order](t, first).ID != decode[order.Order](t, second).ID {
		t.Fatalf("retry returned a different order")
	}

	w := do(t, r, http.MethodGet, "/cart", s, nil)
	if got := decode[storefront.Summary](t, w); got.Points != 20 {
		t.Fatalf("expected 10 for the item plus 10 for one order, got %d", got.Points)
	}
}
