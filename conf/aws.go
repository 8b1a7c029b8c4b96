package conf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/guregu/dynamo/v2"
)

func LoadAwsConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), 10)
		}),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return cfg, nil
}

// Clients are the AWS clients the worker talks to.
type Clients struct {
	Sqs      *sqs.Client
	DynamoDb *dynamodb.Client
	Dynamo   *dynamo.DB
	S3       *s3.Client
}

func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		Sqs:      sqs.NewFromConfig(cfg),
		DynamoDb: dynamodb.NewFromConfig(cfg),
		Dynamo:   dynamo.New(cfg),
		S3:       s3.NewFromConfig(cfg),
	}
}
