package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"aws-sqs-messenger/internal/pkg/queue"
)

func TestObserveRequest(t *testing.T) {
	var err error
	ObserveRequest("test", queue.OpSend, time.Now(), &err)
	assert.Equal(t, float64(1), testutil.ToFloat64(Requests.WithLabelValues("test", queue.OpSend, "ok")))

	err = &queue.Error{Kind: queue.KindChannelMissing, Op: queue.OpSend}
	ObserveRequest("test", queue.OpSend, time.Now(), &err)
	assert.Equal(t, float64(1), testutil.ToFloat64(Requests.WithLabelValues("test", queue.OpSend, "channel_missing")))

	err = errors.New("boom")
	ObserveRequest("test", queue.OpCount, time.Now(), &err)
	assert.Equal(t, float64(1), testutil.ToFloat64(Requests.WithLabelValues("test", queue.OpCount, "transport")))
}

func TestObserveRequestEvaluatesErrorLate(t *testing.T) {
	op := func() (err error) {
		defer ObserveRequest("late", queue.OpDelete, time.Now(), &err)
		return &queue.Error{Kind: queue.KindDeliveryHandle, Op: queue.OpDelete}
	}
	_ = op()

	assert.Equal(t, float64(1), testutil.ToFloat64(Requests.WithLabelValues("late", queue.OpDelete, "delivery_handle")))
	assert.Equal(t, float64(0), testutil.ToFloat64(Requests.WithLabelValues("late", queue.OpDelete, "ok")))
}

func TestObserveBatch(t *testing.T) {
	ObserveBatch("test", queue.OpReceive, 7)
	ObserveBatch("test", queue.OpReceive, 3)

	assert.Equal(t, float64(2), testutil.ToFloat64(Batches.WithLabelValues("test", queue.OpReceive)))
	assert.Equal(t, float64(10), testutil.ToFloat64(Messages.WithLabelValues("test", queue.OpReceive)))
}
