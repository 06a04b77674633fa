package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
	"github.com/imrishuroy/pizzafly-storefront/internal/config"
	"github.com/imrishuroy/pizzafly-storefront/internal/handlers"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/shutdown"
	"github.com/imrishuroy/pizzafly-storefront/internal/tracking"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterStorefrontRoutes(r, cfg)

	return r
}

func main() {
	cfg := config.Load()

	log, err := logging.New("storefront-api", cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	clients, err := aws.NewClients(ctx, aws.Services{
		DynamoDB:   cfg.StoreBackend == config.BackendDynamoDB,
		SQS:        cfg.QueueURL != "",
		CloudWatch: cfg.MetricsNamespace != "",
	})
	if err != nil {
		log.Fatal("failed to init aws clients", zap.Error(err))
	}

	store, closeStore, err := kv.Open(ctx, cfg, clients.DynamoDB)
	if err != nil {
		log.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	registry := tracking.NewRegistry(tracking.NewTracker(nil, cfg.TrackingInterval, log))
	defer registry.StopAll()

	hcfg := handlers.HandlerConfig{
		Store:    store,
		Logger:   log,
		Tracking: registry,

		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	if cfg.QueueURL != "" {
		hcfg.Notifier = aws.NewPublisher(clients.SQS, cfg.QueueURL)
	}
	if cfg.MetricsNamespace != "" {
		hcfg.Metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := setupRouter(hcfg)

	// RUN_LOCAL=true serves HTTP directly for development.
	if cfg.RunLocal {
		serveLocal(r, cfg.HTTPAddr, log)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

func serveLocal(h http.Handler, addr string, log *zap.Logger) {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("running local server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
}
