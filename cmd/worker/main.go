package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
	"github.com/imrishuroy/pizzafly-storefront/internal/config"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
)

func main() {
	cfg := config.Load()

	log, err := logging.New("storefront-worker", cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	clients, err := aws.NewClients(ctx, aws.Services{
		DynamoDB:   cfg.StoreBackend == config.BackendDynamoDB,
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

	var metrics StageRecorder
	if cfg.MetricsNamespace != "" {
		metrics = aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace)
	}
	p := NewProcessor(store, metrics, log)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"PF-LOCAL1","scope":"local"}`
		}
		event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "local-1", Body: body}}}
		resp, err := p.Handle(ctx, event)
		if err != nil {
			log.Fatal("local handler error", zap.Error(err))
		}
		log.Info("local run finished", zap.Int("failures", len(resp.BatchItemFailures)))
		return
	}

	lambda.Start(p.Handle)
}
