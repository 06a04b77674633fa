package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/auth"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
	"github.com/imrishuroy/pizzafly-storefront/internal/pricing"
	"github.com/imrishuroy/pizzafly-storefront/internal/storefront"
	"github.com/imrishuroy/pizzafly-storefront/internal/validation"
)

// RegisterStorefrontRoutes registers the cart, points, builder, checkout and
// order tracking routes, plus the auth routes.
func RegisterStorefrontRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	log := logging.OrNop(cfg.Logger)
	locks := newSessionLocks()

	// withEngine runs fn with the request scope locked and its engine loaded.
	withEngine := func(c *gin.Context, fn func(e *storefront.Engine)) {
		scope, ok := sessionScope(c)
		if !ok {
			return
		}
		unlock := locks.Lock(scope)
		defer unlock()

		e, err := storefront.Open(c.Request.Context(), cfg.deps(), scope)
		if err != nil {
			writeError(c, log, err)
			return
		}
		fn(e)
	}

	lineIndex := func(c *gin.Context) (int, bool) {
		i, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_index"})
			return 0, false
		}
		return i, true
	}

	r.GET("/cart", func(c *gin.Context) {
		withEngine(c, func(e *storefront.Engine) {
			c.JSON(http.StatusOK, e.Summary())
		})
	})

	r.POST("/cart/items", func(c *gin.Context) {
		var req validation.AddItemRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		withEngine(c, func(e *storefront.Engine) {
			if err := e.AddToCart(c.Request.Context(), req.Name, req.Price, req.Image); err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, e.Summary())
		})
	})

	r.POST("/cart/items/:index/increment", func(c *gin.Context) {
		i, ok := lineIndex(c)
		if !ok {
			return
		}
		withEngine(c, func(e *storefront.Engine) {
			if err := e.Increment(c.Request.Context(), i); err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, e.Summary())
		})
	})

	r.POST("/cart/items/:index/decrement", func(c *gin.Context) {
		i, ok := lineIndex(c)
		if !ok {
			return
		}
		withEngine(c, func(e *storefront.Engine) {
			if err := e.Decrement(c.Request.Context(), i); err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, e.Summary())
		})
	})

	r.POST("/points/redeem", func(c *gin.Context) {
		withEngine(c, func(e *storefront.Engine) {
			discount, err := e.Redeem(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"discount": pricing.FormatPrice(discount), "cart": e.Summary()})
		})
	})

	r.POST("/builder/quote", func(c *gin.Context) {
		var req validation.BuildRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		c.JSON(http.StatusOK, pricing.QuoteBuild(buildOptions(req)))
	})

	r.POST("/builder/add", func(c *gin.Context) {
		var req validation.BuildRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		q := pricing.QuoteBuild(buildOptions(req))
		withEngine(c, func(e *storefront.Engine) {
			if err := e.AddBuild(c.Request.Context(), q); err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"quote": q, "cart": e.Summary()})
		})
	})

	r.POST("/checkout", func(c *gin.Context) {
		var req validation.CheckoutRequest
		withEngine(c, func(e *storefront.Engine) {
			ctx := c.Request.Context()

			present, err := auth.NewGate(kv.WithScope(cfg.Store, e.Scope()), log).Present(ctx)
			if err != nil {
				writeError(c, log, err)
				return
			}
			if !present {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "sign_in_required", "next": auth.NextPath("order")})
				return
			}

			if err := validation.BindAndValidate(c, &req, v); err != nil {
				return
			}
			ctx = storefront.WithCorrelationID(ctx, c.GetHeader("X-Request-Id"))
			customer := order.Customer{Name: req.Name, Address: req.Address, Phone: req.Phone}

			var (
				o        order.Order
				replayed bool
			)
			if key := c.GetHeader("Idempotency-Key"); key != "" {
				o, replayed, err = e.CheckoutOnce(ctx, customer, key)
			} else {
				o, err = e.Checkout(ctx, customer)
			}
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.Header("Location", "/orders/active")
			if replayed {
				c.Header("Idempotent-Replayed", "true")
				c.JSON(http.StatusOK, o)
				return
			}
			c.JSON(http.StatusCreated, o)
		})
	})

	r.GET("/orders/active", func(c *gin.Context) {
		withEngine(c, func(e *storefront.Engine) {
			o, err := e.ActiveOrder(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			if o == nil {
				writeError(c, log, storefront.ErrNoOrder)
				return
			}
			c.JSON(http.StatusOK, o)
		})
	})

	r.GET("/orders/active/tracking", func(c *gin.Context) {
		withEngine(c, func(e *storefront.Engine) {
			view, err := e.Tracking(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			if !view.Delivered && cfg.Tracking != nil {
				if _, running := cfg.Tracking.Get(e.Scope()); !running {
					if _, err := e.ResumeTracking(c.Request.Context()); err != nil {
						log.Warn("resume tracking", zap.String("scope", e.Scope()), zap.Error(err))
					}
				}
			}
			c.JSON(http.StatusOK, view)
		})
	})

	registerAuthRoutes(r, cfg, v, locks)
}

func buildOptions(req validation.BuildRequest) pricing.BuildOptions {
	choice := func(b validation.BuildChoice) pricing.Choice {
		return pricing.Choice{Name: b.Name, Price: b.Price}
	}
	return pricing.BuildOptions{
		Size:     choice(req.Size),
		Crust:    choice(req.Crust),
		Sauce:    choice(req.Sauce),
		Cheese:   choice(req.Cheese),
		Toppings: req.Toppings,
	}
}
