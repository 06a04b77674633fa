package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Services selects the clients NewClients builds.
type Services struct {
	DynamoDB   bool // storage backend
	SQS        bool // order placed notifications
	CloudWatch bool // order and stage metrics
}

func (s Services) none() bool { return !s.DynamoDB && !s.SQS && !s.CloudWatch }

// Clients holds the requested service clients. Unrequested ones are nil.
type Clients struct {
	DynamoDB   DynamoDBAPI
	SQS        SQSAPI
	CloudWatch CloudWatchAPI
}

// NewClients loads the shared AWS config once and builds the clients in want.
// When want is empty no config is loaded, so a fully local run needs no AWS
// environment.
func NewClients(ctx context.Context, want Services) (*Clients, error) {
	c := &Clients{}
	if want.none() {
		return c, nil
	}

	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	if want.DynamoDB {
		c.DynamoDB = dynamodb.NewFromConfig(cfg)
	}
	if want.SQS {
		c.SQS = sqs.NewFromConfig(cfg)
	}
	if want.CloudWatch {
		c.CloudWatch = cloudwatch.NewFromConfig(cfg)
	}
	return c, nil
}
