package redisQueue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aws-sqs-messenger/internal/pkg/queue"
)

type replyError string

func (e replyError) Error() string { return string(e) }
func (replyError) RedisError()     {}

func TestClassify(t *testing.T) {
	code, missing := classify(replyError(errNonExistentQueue + " channel does not exist"))
	assert.True(t, missing)
	assert.Equal(t, errNonExistentQueue, code)

	code, missing = classify(replyError("NOSCRIPT No matching script"))
	assert.False(t, missing)
	assert.Equal(t, "NOSCRIPT", code)

	code, missing = classify(errors.New("dial tcp: connection refused"))
	assert.False(t, missing)
	assert.Empty(t, code)
}

func TestTranslateMissingChannel(t *testing.T) {
	m := New(nil, Config{KeyPrefix: "test:"})
	cause := replyError(errNonExistentQueue + " channel does not exist")

	assert.ErrorIs(t, m.translator.Translate(queue.OpSend, "orders", cause), queue.ErrChannelMissing)
	assert.ErrorIs(t, m.translator.Translate(queue.OpReceive, "orders", cause), queue.ErrTransport)
}

func TestEncodeDecode(t *testing.T) {
	msg := queue.Message{
		Body:       []byte("hello"),
		Properties: map[string]string{"tenant": "acme", queue.DeliveryHandleKey: "old-handle"},
	}

	data, err := encode(msg, "1700000000000")
	require.NoError(t, err)
	assert.NotContains(t, data, "old-handle")

	got, err := decode([]string{"id-1", "id-1:7", data})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "id-1", got[0].ID)
	assert.Equal(t, []byte("hello"), got[0].Body)
	assert.Equal(t, "acme", got[0].Properties["tenant"])
	assert.Equal(t, "1700000000000", got[0].Properties["SentTimestamp"])

	h, ok := got[0].DeliveryHandle()
	assert.True(t, ok)
	assert.Equal(t, "id-1:7", h)
}

func TestEncodeDecodeKeepsCallerID(t *testing.T) {
	msg := queue.Message{
		ID:         "client-order-17",
		Body:       []byte("x"),
		Properties: map[string]string{queue.MessageIDKey: "stale"},
	}

	data, err := encode(msg, "1")
	require.NoError(t, err)

	got, err := decode([]string{"storage-id", "storage-id:1", data})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "client-order-17", got[0].ID)
	assert.NotContains(t, got[0].Properties, queue.MessageIDKey)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := decode([]string{"id-1", "h"})
	assert.Error(t, err)

	_, err = decode([]string{"id-1", "h", "{not json"})
	assert.Error(t, err)

	got, err := decode(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeys(t *testing.T) {
	m := New(nil, Config{KeyPrefix: "messenger:"})

	assert.Equal(t, []string{
		"messenger:channels",
		"messenger:q:orders:ready",
		"messenger:q:orders:msgs",
		"messenger:q:orders:inflight",
		"messenger:q:orders:handles",
		"messenger:q:orders:seq",
	}, m.keys("orders"))
	assert.Equal(t, queue.MaxWaitTime, New(nil, Config{WaitTime: time.Hour}).Config.WaitTime)
}

func newIntegrationMessenger(t *testing.T) *Messenger {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("env REDIS_TEST_ADDR not set")
	}
	client := NewClient(addr, 0)
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	prefix := "messenger-test:" + uuid.NewString() + ":"
	t.Cleanup(func() {
		ctx := context.Background()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	})
	return New(client, Config{KeyPrefix: prefix})
}

func TestMessengerLifecycle(t *testing.T) {
	m := newIntegrationMessenger(t)
	m.Config.WaitTime = 0
	ctx := context.Background()

	err := m.Send(ctx, "orders", []queue.Message{queue.NewMessage([]byte("x"))})
	assert.ErrorIs(t, err, queue.ErrChannelMissing)

	n, err := m.GetMessageCount(ctx, "ghost-channel")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, m.CreateChannels(ctx, []string{"orders", "billing"}))
	names, err := m.ListChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "orders"}, names)

	msgs := make([]queue.Message, 25)
	for i := range msgs {
		msgs[i] = queue.NewMessage([]byte{byte('a' + i)})
	}
	require.NoError(t, m.Send(ctx, "orders", msgs))
	for _, msg := range msgs {
		assert.NotEmpty(t, msg.ID)
	}

	n, err = m.GetMessageCount(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	require.NoError(t, m.Send(ctx, "billing", []queue.Message{{ID: "client-order-17", Body: []byte("b")}}))
	billed, err := m.Receive(ctx, "billing", 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, billed, 1)
	assert.Equal(t, "client-order-17", billed[0].ID)

	got, err := m.Receive(ctx, "orders", 5, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, msg := range got {
		assert.Equal(t, msgs[i].ID, msg.ID)
		assert.Equal(t, msgs[i].Body, msg.Body)
	}

	require.NoError(t, m.Delete(ctx, "orders", got))
	// Deleting again with the same handles is a no-op.
	require.NoError(t, m.Delete(ctx, "orders", got))

	n, err = m.GetMessageCount(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	require.NoError(t, m.DeleteChannels(ctx, []string{"orders", "billing"}))
	names, err = m.ListChannels(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMessengerVisibilityExpiry(t *testing.T) {
	m := newIntegrationMessenger(t)
	m.Config.WaitTime = 0
	ctx := context.Background()
	require.NoError(t, m.CreateChannels(ctx, []string{"orders"}))
	require.NoError(t, m.Send(ctx, "orders", []queue.Message{queue.NewMessage([]byte("once"))}))

	first, err := m.Peek(ctx, "orders", 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	hidden, err := m.Receive(ctx, "orders", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	time.Sleep(1100 * time.Millisecond)

	again, err := m.Receive(ctx, "orders", 1, 0)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, first[0].ID, again[0].ID)

	h1, _ := first[0].DeliveryHandle()
	h2, _ := again[0].DeliveryHandle()
	assert.NotEqual(t, h1, h2)
}
