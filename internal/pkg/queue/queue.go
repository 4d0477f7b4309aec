package queue

import (
	"context"
	"math"
	"time"
)

// Limits imposed by the remote queue service on a single request.
const (
	MaxBatchSize = 10               // entries per send/delete batch and messages per receive
	MaxWaitTime  = 20 * time.Second // upper bound of the long-poll wait
)

const (
	DefaultReceiveCount      = 100
	DefaultVisibilityTimeout = 60 * time.Second
	PeekVisibilityTimeout    = time.Second
)

// DeliveryHandleKey is the reserved property holding the handle issued by the
// service when a message is received. It is written by Receive/Peek and read by
// Delete; it is never sent and callers must not set it themselves.
const DeliveryHandleKey = "AWS.ReceiptHandle"

// MessageIDKey is the reserved property carrying a caller-assigned Message.ID
// through the service, which only knows its own message ids. Backends restore
// Message.ID from it on receive and strip it from the property map.
const MessageIDKey = "Messenger.MessageId"

// Message is the backend-agnostic message carried through a Messenger.
type Message struct {
	ID         string
	Body       []byte
	Properties map[string]string
}

// NewMessage creates a message with an empty property map.
func NewMessage(body []byte) Message {
	return Message{Body: body, Properties: map[string]string{}}
}

// DeliveryHandle returns the handle injected by the receive path, if any.
func (m Message) DeliveryHandle() (string, bool) {
	h, ok := m.Properties[DeliveryHandleKey]
	return h, ok && h != ""
}

// Messenger is the channel abstraction exposed by every queue backend.
type Messenger interface {
	// CreateChannels creates every named channel concurrently and waits for all of them.
	CreateChannels(ctx context.Context, names []string) error
	// ListChannels returns the short names of all channels known to the service.
	ListChannels(ctx context.Context) ([]string, error)
	// DeleteChannels deletes the named channels one after another.
	DeleteChannels(ctx context.Context, names []string) error
	// GetMessageCount returns the approximate number of visible messages, or zero
	// when the channel does not exist.
	GetMessageCount(ctx context.Context, channel string) (int64, error)
	// Send publishes messages in batches of MaxBatchSize. A caller-assigned ID
	// travels with the message; elements sent without one get the
	// service-assigned identifier written back.
	Send(ctx context.Context, channel string, messages []Message) error
	// Receive pulls up to MaxBatchSize messages and hides them for visibility
	// (DefaultVisibilityTimeout when zero). count <= 0 means DefaultReceiveCount.
	Receive(ctx context.Context, channel string, count int, visibility time.Duration) ([]Message, error)
	// Peek pulls up to MaxBatchSize messages that become visible again after PeekVisibilityTimeout.
	Peek(ctx context.Context, channel string, count int) ([]Message, error)
	// Delete removes previously received messages using their delivery handles.
	Delete(ctx context.Context, channel string, messages []Message) error
}

// ClampCount applies the receive default and the per-call service ceiling.
func ClampCount(count int) int32 {
	if count <= 0 {
		count = DefaultReceiveCount
	}
	return int32(min(count, MaxBatchSize))
}

// ClampWait bounds a long-poll wait to [0, MaxWaitTime].
func ClampWait(wait time.Duration) time.Duration {
	return max(0, min(wait, MaxWaitTime))
}

// VisibilityOrDefault returns visibility, or DefaultVisibilityTimeout when it is not positive.
func VisibilityOrDefault(visibility time.Duration) time.Duration {
	if visibility <= 0 {
		return DefaultVisibilityTimeout
	}
	return visibility
}

// Seconds rounds d up to whole seconds, the granularity the service accepts.
func Seconds(d time.Duration) int32 {
	return int32(math.Ceil(d.Seconds()))
}
