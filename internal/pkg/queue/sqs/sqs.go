package sqs

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"aws-sqs-messenger/internal/pkg/queue"
)

const backend = "sqs"

// API is the subset of the SQS client used by Messenger.
type API interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
	DeleteQueue(ctx context.Context, params *sqs.DeleteQueueInput, optFns ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

type Config struct {
	BaseURL           string        // Queue URL prefix, e.g. https://sqs.us-east-1.amazonaws.com/123456789012
	WaitTime          time.Duration // Long-poll wait for receive and peek
	VisibilityTimeout time.Duration // Receive visibility when the caller passes none
}

// Messenger implements queue.Messenger on top of AWS SQS.
type Messenger struct {
	client     API
	config     Config
	resolver   *queue.Resolver
	translator queue.Translator
}

var _ queue.Messenger = (*Messenger)(nil)

// NewClient creates a new sqs client. A non-empty endpoint overrides the
// service endpoint (LocalStack, ElasticMQ).
func NewClient(ctx context.Context, region string, endpoint string) (*sqs.Client, error) {
	// Load the Shared AWS Configuration
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return sqs.NewFromConfig(cfg), nil
	}
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

// New creates a Messenger. The wait time is always capped at queue.MaxWaitTime.
func New(client API, cfg Config) *Messenger {
	cfg.WaitTime = queue.ClampWait(cfg.WaitTime)
	cfg.VisibilityTimeout = queue.VisibilityOrDefault(cfg.VisibilityTimeout)
	return &Messenger{
		client:     client,
		config:     cfg,
		resolver:   queue.NewResolver(cfg.BaseURL, "/"),
		translator: queue.Translator{Classify: classify},
	}
}

// QueueURL resolves a channel name to its SQS queue URL.
func (m *Messenger) QueueURL(channel string) string {
	return m.resolver.Resolve(channel)
}
