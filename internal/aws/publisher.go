package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

// OrderPlacedMessage is the payload sent from the storefront API -> SQS -> worker.
type OrderPlacedMessage struct {
	OrderID       string  `json:"order_id"`
	Scope         string  `json:"scope"`
	Total         float64 `json:"total"`
	CreatedAt     int64   `json:"created_at"`
	CorrelationID string  `json:"correlation_id,omitempty"`
}

// Publisher wraps an SQS client and a queue URL.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
}

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// OrderPlaced publishes a notification for a freshly created active order.
func (p *Publisher) OrderPlaced(ctx context.Context, msg OrderPlacedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}
	return p.SendOrderMessage(ctx, string(body), map[string]string{
		"order_id":       msg.OrderID,
		"scope":          msg.Scope,
		"total":          strconv.FormatFloat(msg.Total, 'f', 2, 64),
		"correlation_id": msg.CorrelationID,
	})
}

// SendOrderMessage sends an order message to SQS. messageBody should be a JSON string.
// attributes map[string]string -> sent as MessageAttributes.
func (p *Publisher) SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			if v == "" {
				continue
			}
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}

	_, err := p.SQS.SendMessage(ctx, input)
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			return fmt.Errorf("send message (%s): %w", ae.ErrorCode(), err)
		}
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
