package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
	"github.com/imrishuroy/pizzafly-storefront/internal/order"
	"github.com/imrishuroy/pizzafly-storefront/internal/tracking"
)

var errInvalidMessage = errors.New("invalid order placed message")

// StageRecorder receives the stage observed for each placed order. *aws.Metrics
// satisfies it.
type StageRecorder interface {
	TrackingStage(ctx context.Context, stage string) error
}

// Processor consumes order-placed notifications. For each one it reads the
// scope's active order and records the delivery stage it has reached.
type Processor struct {
	store   kv.Store
	metrics StageRecorder
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewProcessor creates a processor over store. metrics may be nil.
func NewProcessor(store kv.Store, metrics StageRecorder, log *zap.Logger) *Processor {
	return &Processor{
		store:   store,
		metrics: metrics,
		log:     logging.OrNop(log),
		nowFunc: time.Now,
	}
}

// Handle processes an SQS batch. Messages that fail with a retryable error are
// reported back as batch item failures so only they are redelivered; malformed
// messages are dropped.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		err := p.processMessage(ctx, rec)
		switch {
		case err == nil:
		case errors.Is(err, errInvalidMessage):
			p.log.Error("dropping message", zap.String("message_id", rec.MessageId), zap.Error(err))
		default:
			p.log.Warn("message will be retried", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg aws.OrderPlacedMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	if msg.OrderID == "" || msg.Scope == "" {
		return fmt.Errorf("%w: order_id and scope are required", errInvalidMessage)
	}
	if err := kv.ValidateScope(msg.Scope); err != nil {
		return fmt.Errorf("%w: %v", errInvalidMessage, err)
	}

	log := p.log.With(
		zap.String("order_id", msg.OrderID),
		zap.String("scope", msg.Scope),
		zap.String("correlation_id", msg.CorrelationID))

	active, err := order.NewStore(kv.WithScope(p.store, msg.Scope), log).Active(ctx)
	if err != nil {
		return fmt.Errorf("load active order: %w", err)
	}
	if active == nil || active.ID != msg.OrderID {
		// a newer checkout replaced it
		log.Info("order no longer active")
		return nil
	}

	stage := tracking.CurrentStage(active.Created(), p.nowFunc())
	log.Info("order stage observed",
		zap.String("stage", string(stage)),
		zap.Float64("total", active.Total))

	if p.metrics != nil {
		if err := p.metrics.TrackingStage(ctx, string(stage)); err != nil {
			return fmt.Errorf("record stage: %w", err)
		}
	}
	return nil
}
