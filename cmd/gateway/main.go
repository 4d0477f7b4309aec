package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aws-sqs-messenger/configs"
	apphttp "aws-sqs-messenger/internal/app/http"
	"aws-sqs-messenger/internal/app/http/handler"
	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/observability/metrics"
	"aws-sqs-messenger/internal/pkg/queue"
	redisQueue "aws-sqs-messenger/internal/pkg/queue/redis"
	"aws-sqs-messenger/internal/pkg/queue/sqs"
	"aws-sqs-messenger/internal/pkg/utils"
)

func main() {
	cfg, err := configs.Parse()
	if err != nil {
		panic(err)
	}

	if err := logger.Setup(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messenger, closeFn, err := newMessenger(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create messenger", zap.String("queueType", cfg.QueueType), zap.Error(err))
	}
	defer closeFn()

	done := apphttp.StartHTTPServer(ctx, cfg.HTTPAddr, handler.New(messenger, cfg.HTTPMaxBodyBytes))
	logger.Info("Gateway started", zap.String("queueType", cfg.QueueType))

	<-ctx.Done()
	logger.Info("Gateway stopping")
	<-done
}

func newMessenger(ctx context.Context, cfg *configs.Config) (queue.Messenger, func(), error) {
	switch cfg.QueueType {
	case "redis":
		client := redisQueue.NewClient(cfg.QueueRedisEndpoint, cfg.QueueRedisDB)
		if _, err := utils.Retry(ctx, 5, time.Second, func() (string, error) {
			return client.Ping(ctx).Result()
		}); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		m := redisQueue.New(client, redisQueue.Config{
			KeyPrefix:         cfg.QueueRedisKeyPrefix,
			WaitTime:          cfg.QueueWaitTimeDuration,
			VisibilityTimeout: cfg.QueueVisibilityTimeoutDuration,
		})
		return m, func() { _ = client.Close() }, nil
	default:
		client, err := sqs.NewClient(ctx, cfg.QueueAwsSqsRegion, cfg.QueueAwsSqsEndpoint)
		if err != nil {
			return nil, nil, err
		}
		m := sqs.New(client, sqs.Config{
			BaseURL:           cfg.QueueAwsSqsBaseURL,
			WaitTime:          cfg.QueueWaitTimeDuration,
			VisibilityTimeout: cfg.QueueVisibilityTimeoutDuration,
		})
		return m, func() {}, nil
	}
}
