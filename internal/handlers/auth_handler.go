package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/pizzafly-storefront/internal/auth"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/validation"
)

func registerAuthRoutes(r *gin.Engine, cfg HandlerConfig, v *validatorv10.Validate, locks *sessionLocks) {
	log := logging.OrNop(cfg.Logger)

	withGate := func(c *gin.Context, fn func(g *auth.Gate)) {
		scope, ok := sessionScope(c)
		if !ok {
			return
		}
		unlock := locks.Lock(scope)
		defer unlock()
		fn(auth.NewGate(kv.WithScope(cfg.Store, scope), log))
	}

	r.GET("/auth/me", func(c *gin.Context) {
		withGate(c, func(g *auth.Gate) {
			u, err := g.Current(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"present": u != nil, "user": u})
		})
	})

	r.POST("/auth/sign-in", func(c *gin.Context) {
		var req validation.SignInRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		withGate(c, func(g *auth.Gate) {
			u, err := g.SignIn(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": u, "next": auth.NextPath(req.Next)})
		})
	})

	r.POST("/auth/register", func(c *gin.Context) {
		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		withGate(c, func(g *auth.Gate) {
			u, err := g.Register(c.Request.Context(), req.Name, req.Email, req.Password)
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"user": u, "next": auth.NextPath(req.Next)})
		})
	})

	r.POST("/auth/guest", func(c *gin.Context) {
		withGate(c, func(g *auth.Gate) {
			u, err := g.ContinueAsGuest(c.Request.Context())
			if err != nil {
				writeError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": u, "next": auth.NextPath(c.Query("next"))})
		})
	})

	r.POST("/auth/sign-out", func(c *gin.Context) {
		withGate(c, func(g *auth.Gate) {
			if err := g.SignOut(c.Request.Context()); err != nil {
				writeError(c, log, err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	})
}
