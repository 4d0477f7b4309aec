package sqs

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/observability/metrics"
	"aws-sqs-messenger/internal/pkg/queue"
)

// CreateChannels creates all queues concurrently. A failed create does not
// roll back the others; every failure is reported.
func (m *Messenger) CreateChannels(ctx context.Context, names []string) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpCreateChannels, time.Now(), &err)
	if err := queue.ValidateNames(queue.OpCreateChannels, names); err != nil {
		return err
	}

	errs := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			errs[i] = m.createChannel(ctx, name)
			return errs[i]
		})
	}
	if g.Wait() == nil {
		return nil
	}
	return multierr.Combine(errs...)
}

func (m *Messenger) createChannel(ctx context.Context, name string) error {
	if err := queue.CheckContext(ctx, queue.OpCreateChannels, name); err != nil {
		return err
	}
	out, err := m.client.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(name)})
	if err != nil {
		logger.ErrorCtx(ctx, "SQS CreateQueue error", zap.String("channel", name), zap.Error(err))
		return m.translator.Translate(queue.OpCreateChannels, name, err)
	}
	if got, want := aws.ToString(out.QueueUrl), m.resolver.Resolve(name); got != want {
		logger.WarnCtx(ctx, "created queue url differs from resolved url",
			zap.String("channel", name), zap.String("queueUrl", got), zap.String("resolved", want))
	}
	logger.InfoCtx(ctx, "channel created", zap.String("channel", name))
	return nil
}

// ListChannels returns the names of all queues visible to the account.
func (m *Messenger) ListChannels(ctx context.Context) (names []string, err error) {
	defer metrics.ObserveRequest(backend, queue.OpListChannels, time.Now(), &err)

	names = []string{}
	p := sqs.NewListQueuesPaginator(m.client, &sqs.ListQueuesInput{MaxResults: aws.Int32(1000)})
	for p.HasMorePages() {
		if err := queue.CheckContext(ctx, queue.OpListChannels, ""); err != nil {
			return nil, err
		}
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, m.translator.Translate(queue.OpListChannels, "", err)
		}
		for _, u := range page.QueueUrls {
			names = append(names, m.resolver.Name(u))
		}
	}
	return names, nil
}

// DeleteChannels deletes queues one by one. Each failure is reported and does
// not stop the remaining deletes; cancellation does.
func (m *Messenger) DeleteChannels(ctx context.Context, names []string) (err error) {
	defer metrics.ObserveRequest(backend, queue.OpDeleteChannels, time.Now(), &err)
	if err := queue.ValidateNames(queue.OpDeleteChannels, names); err != nil {
		return err
	}

	var errs error
	for _, name := range names {
		if err := queue.CheckContext(ctx, queue.OpDeleteChannels, name); err != nil {
			return multierr.Append(errs, err)
		}
		_, err := m.client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(m.resolver.Resolve(name))})
		if err != nil {
			logger.ErrorCtx(ctx, "SQS DeleteQueue error", zap.String("channel", name), zap.Error(err))
			errs = multierr.Append(errs, m.translator.Translate(queue.OpDeleteChannels, name, err))
			continue
		}
		logger.InfoCtx(ctx, "channel deleted", zap.String("channel", name))
	}
	return errs
}

// GetMessageCount returns ApproximateNumberOfMessages, or zero for a missing queue.
func (m *Messenger) GetMessageCount(ctx context.Context, channel string) (count int64, err error) {
	defer metrics.ObserveRequest(backend, queue.OpCount, time.Now(), &err)
	if err := queue.ValidateChannel(queue.OpCount, channel); err != nil {
		return 0, err
	}
	if err := queue.CheckContext(ctx, queue.OpCount, channel); err != nil {
		return 0, err
	}

	attr := types.QueueAttributeNameApproximateNumberOfMessages
	out, err := m.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(m.resolver.Resolve(channel)),
		AttributeNames: []types.QueueAttributeName{attr},
	})
	if err != nil {
		if m.translator.ChannelMissing(err) {
			logger.DebugCtx(ctx, "count on missing channel", zap.String("channel", channel))
			return 0, nil
		}
		return 0, m.translator.Translate(queue.OpCount, channel, err)
	}

	v, ok := out.Attributes[string(attr)]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &queue.Error{Kind: queue.KindTransport, Op: queue.OpCount, Channel: channel, Err: err}
	}
	return n, nil
}
