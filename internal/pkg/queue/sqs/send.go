package sqs

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/observability/metrics"
	"aws-sqs-messenger/internal/pkg/queue"
)

// Send publishes messages with SendMessageBatch, one request per group of
// queue.MaxBatchSize, in order. A rejected request aborts the call; entries
// rejected inside an accepted request are collected and reported once all
// batches were sent.
func (m *Messenger) Send(ctx context.Context, channel string, messages []queue.Message) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpSend, time.Now(), &err)
	if err := queue.ValidateMessages(queue.OpSend, channel, messages); err != nil {
		return err
	}

	queueURL := m.resolver.Resolve(channel)
	var failures []queue.BatchFailure
	for off, batch := range queue.Batches(messages, queue.MaxBatchSize) {
		if err := queue.CheckContext(ctx, queue.OpSend, channel); err != nil {
			return err
		}

		entries := make([]types.SendMessageBatchRequestEntry, len(batch))
		for i, msg := range batch {
			entries[i] = toWire(i, msg)
		}
		out, err := m.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			logger.ErrorCtx(ctx, "SQS SendMessageBatch error", zap.String("channel", channel), zap.Int("offset", off), zap.Error(err))
			return m.translator.Translate(queue.OpSend, channel, err)
		}
		metrics.ObserveBatch(backend, queue.OpSend, len(out.Successful))

		for _, s := range out.Successful {
			i, err := strconv.Atoi(aws.ToString(s.Id))
			if err != nil || i < 0 || i >= len(batch) {
				continue
			}
			if messages[off+i].ID == "" {
				messages[off+i].ID = aws.ToString(s.MessageId)
			}
		}
		failures = append(failures, batchFailures(off, batch, out.Failed)...)
	}

	if len(failures) > 0 {
		logger.WarnCtx(ctx, "SQS SendMessageBatch partial failure", zap.String("channel", channel), zap.Int("failed", len(failures)))
	}
	return queue.BatchFailed(queue.OpSend, channel, failures)
}
