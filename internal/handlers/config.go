package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/storefront"
	"github.com/imrishuroy/pizzafly-storefront/internal/tracking"
)

// SessionHeader carries the storefront scope. A request without one gets a
// fresh scope, echoed back in the same header.
const SessionHeader = "X-Session-Id"

// HandlerConfig groups dependencies for the storefront handlers.
type HandlerConfig struct {
	Store    kv.Store
	Logger   *zap.Logger
	Notifier storefront.Notifier
	Metrics  storefront.Recorder
	Tracking *tracking.Registry
	Now      func() time.Time
	NewID    func() string

	IdempotencyTTL time.Duration
}

func (cfg HandlerConfig) deps() storefront.Deps {
	return storefront.Deps{
		Store:    cfg.Store,
		Log:      cfg.Logger,
		Notifier: cfg.Notifier,
		Metrics:  cfg.Metrics,
		Tracking: cfg.Tracking,
		Now:      cfg.Now,
		NewID:    cfg.NewID,

		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}
