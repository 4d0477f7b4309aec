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

// Delete removes received messages with DeleteMessageBatch. Every message must
// carry a delivery handle; the check runs before any request is issued.
// Entries the service rejects do not stop the remaining batches.
func (m *Messenger) Delete(ctx context.Context, channel string, messages []queue.Message) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpDelete, time.Now(), &err)
	if err := queue.ValidateMessages(queue.OpDelete, channel, messages); err != nil {
		return err
	}
	if err := queue.RequireDeliveryHandles(queue.OpDelete, channel, messages); err != nil {
		return err
	}

	queueURL := m.resolver.Resolve(channel)
	var failures []queue.BatchFailure
	done := 0
	for off, batch := range queue.Batches(messages, queue.MaxBatchSize) {
		if err := queue.CheckContext(ctx, queue.OpDelete, channel); err != nil {
			logger.WarnCtx(ctx, "delete canceled", zap.String("channel", channel), zap.Int("done", done), zap.Int("remaining", len(messages)-off))
			return err
		}

		entries := make([]types.DeleteMessageBatchRequestEntry, len(batch))
		for i, msg := range batch {
			handle, _ := msg.DeliveryHandle()
			entries[i] = types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(i)),
				ReceiptHandle: aws.String(handle),
			}
		}
		out, err := m.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			logger.ErrorCtx(ctx, "SQS DeleteMessageBatch error", zap.String("channel", channel), zap.Int("done", done), zap.Error(err))
			return m.translator.Translate(queue.OpDelete, channel, err)
		}
		metrics.ObserveBatch(backend, queue.OpDelete, len(out.Successful))

		failures = append(failures, batchFailures(off, batch, out.Failed)...)
		done = off + len(batch)
	}

	logger.DebugCtx(ctx, "messages deleted", zap.String("channel", channel), zap.Int("count", done), zap.Int("failed", len(failures)))
	return queue.BatchFailed(queue.OpDelete, channel, failures)
}
