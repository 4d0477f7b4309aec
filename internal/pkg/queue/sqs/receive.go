package sqs

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/observability/metrics"
	"aws-sqs-messenger/internal/pkg/queue"
)

// Receive pulls messages and hides them for visibility, or for the configured
// default when visibility is zero.
func (m *Messenger) Receive(ctx context.Context, channel string, count int, visibility time.Duration) ([]queue.Message, error) {
	if visibility <= 0 {
		visibility = m.config.VisibilityTimeout
	}
	return m.pull(ctx, queue.OpReceive, channel, count, visibility)
}

// Peek pulls messages with a one second visibility timeout so they reappear
// to other consumers almost immediately.
func (m *Messenger) Peek(ctx context.Context, channel string, count int) ([]queue.Message, error) {
	return m.pull(ctx, queue.OpPeek, channel, count, queue.PeekVisibilityTimeout)
}

func (m *Messenger) pull(ctx context.Context, op, channel string, count int, visibility time.Duration) (messages []queue.Message, err error) {
	defer metrics.ObserveRequest(backend, op, time.Now(), &err)
	if err := queue.ValidateChannel(op, channel); err != nil {
		return nil, err
	}
	if err := queue.CheckContext(ctx, op, channel); err != nil {
		return nil, err
	}

	out, err := m.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(m.resolver.Resolve(channel)),
		MaxNumberOfMessages:         queue.ClampCount(count),
		VisibilityTimeout:           queue.Seconds(visibility),
		WaitTimeSeconds:             queue.Seconds(m.config.WaitTime),
		MessageAttributeNames:       []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
	})
	if err != nil {
		logger.ErrorCtx(ctx, "SQS ReceiveMessage error", zap.String("channel", channel), zap.String("op", op), zap.Error(err))
		return nil, m.translator.Translate(op, channel, err)
	}

	messages = make([]queue.Message, 0, len(out.Messages))
	for _, msg := range out.Messages {
		messages = append(messages, fromWire(msg))
	}
	metrics.ObserveBatch(backend, op, len(messages))
	return messages, nil
}
