package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/auth"
	"github.com/imrishuroy/pizzafly-storefront/internal/cart"
	"github.com/imrishuroy/pizzafly-storefront/internal/idempotency"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
	"github.com/imrishuroy/pizzafly-storefront/internal/points"
	"github.com/imrishuroy/pizzafly-storefront/internal/storefront"
)

// writeError maps domain errors to status codes. Anything unknown is a 500 and
// gets logged.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, cart.ErrLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "line_not_found"})
	case errors.Is(err, storefront.ErrNoOrder):
		c.JSON(http.StatusNotFound, gin.H{"error": "no_active_order"})
	case errors.Is(err, points.ErrInsufficientPoints):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_points", "min_points": points.MinRedeemPoints})
	case errors.Is(err, order.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_required_field", "detail": err.Error()})
	case errors.Is(err, idempotency.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_idempotency_key"})
	case errors.Is(err, auth.ErrMissingCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_credentials"})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
