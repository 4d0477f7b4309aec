package http

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aws-sqs-messenger/internal/app/http/handler"
	"aws-sqs-messenger/internal/pkg/logger"
	"aws-sqs-messenger/internal/pkg/queue"
)

// shutdownTimeout lets an in-flight long poll finish before the server closes.
const shutdownTimeout = queue.MaxWaitTime + 5*time.Second

// StartHTTPServer serves the gateway routes and /metrics on addr until ctx is
// done. The returned channel is closed once the server has shut down.
func StartHTTPServer(ctx context.Context, addr string, h *handler.Handler) <-chan struct{} {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				logger.Info("HTTP server closed")
			} else {
				logger.Error("HTTP server failed", zap.Error(err))
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Shutting down HTTP server...")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("HTTP server shutdown failed", zap.Error(err))
		} else {
			logger.Info("HTTP server shut down gracefully")
		}
	}()

	return done
}
