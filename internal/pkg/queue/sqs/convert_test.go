package sqs

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aws-sqs-messenger/internal/pkg/queue"
)

func TestWireRoundTrip(t *testing.T) {
	in := queue.Message{
		Body:       []byte(`{"order":17}`),
		Properties: map[string]string{"tenant": "acme", "priority": "high"},
	}

	entry := toWire(3, in)
	assert.Equal(t, "3", aws.ToString(entry.Id))

	// What the service hands back for the entry above.
	received := types.Message{
		MessageId:         aws.String("sqs-1"),
		ReceiptHandle:     aws.String("rh-1"),
		Body:              entry.MessageBody,
		MessageAttributes: entry.MessageAttributes,
		Attributes:        map[string]string{"ApproximateReceiveCount": "1"},
	}
	out := fromWire(received)

	assert.Equal(t, "sqs-1", out.ID)
	assert.Equal(t, in.Body, out.Body)
	assert.Equal(t, "acme", out.Properties["tenant"])
	assert.Equal(t, "high", out.Properties["priority"])
	assert.Equal(t, "1", out.Properties["ApproximateReceiveCount"])

	h, ok := out.DeliveryHandle()
	require.True(t, ok)
	assert.Equal(t, "rh-1", h)

	// Forwarding the received message does not leak the handle or system attributes.
	again := toWire(0, out)
	assert.Len(t, again.MessageAttributes, 2)
	assert.NotContains(t, again.MessageAttributes, queue.DeliveryHandleKey)
	assert.NotContains(t, again.MessageAttributes, "ApproximateReceiveCount")
}

func TestToWireWithoutProperties(t *testing.T) {
	entry := toWire(0, queue.Message{Body: []byte("plain")})

	assert.Nil(t, entry.MessageAttributes)
	assert.Equal(t, "plain", aws.ToString(entry.MessageBody))
}

func TestFromWireBinaryAttribute(t *testing.T) {
	out := fromWire(types.Message{
		Body: aws.String("x"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"blob": {DataType: aws.String("Binary"), BinaryValue: []byte("hi")},
		},
	})

	assert.Equal(t, "aGk=", out.Properties["blob"])
	_, ok := out.DeliveryHandle()
	assert.False(t, ok)
}

func TestBatchFailuresMapsOffsets(t *testing.T) {
	batch := []queue.Message{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	got := batchFailures(20, batch, []types.BatchResultErrorEntry{
		{Id: aws.String("2"), Code: aws.String("InternalError")},
		{Id: aws.String("not-a-number"), Code: aws.String("Ignored")},
		{Id: aws.String("9"), Code: aws.String("Ignored")},
	})

	require.Len(t, got, 1)
	assert.Equal(t, 22, got[0].Index)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "InternalError", got[0].Code)
}

func TestClassify(t *testing.T) {
	code, missing := classify(&types.QueueDoesNotExist{})
	assert.True(t, missing)
	assert.Equal(t, "QueueDoesNotExist", code)

	code, missing = classify(&types.QueueNameExists{})
	assert.False(t, missing)
	assert.Equal(t, "QueueNameExists", code)

	code, missing = classify(assert.AnError)
	assert.False(t, missing)
	assert.Empty(t, code)
}

func TestWireRoundTripKeepsCallerID(t *testing.T) {
	in := queue.Message{ID: "client-order-17", Body: []byte("x"), Properties: map[string]string{"tenant": "acme"}}

	entry := toWire(0, in)
	assert.Equal(t, "0", aws.ToString(entry.Id))
	assert.Equal(t, "client-order-17", aws.ToString(entry.MessageAttributes[queue.MessageIDKey].StringValue))

	out := fromWire(types.Message{
		MessageId:         aws.String("sqs-1"),
		ReceiptHandle:     aws.String("rh-1"),
		Body:              entry.MessageBody,
		MessageAttributes: entry.MessageAttributes,
	})
	assert.Equal(t, "client-order-17", out.ID)
	assert.NotContains(t, out.Properties, queue.MessageIDKey)
	assert.Equal(t, "acme", out.Properties["tenant"])

	// Forwarding keeps exactly one id attribute.
	again := toWire(0, out)
	assert.Len(t, again.MessageAttributes, 2)
	assert.Equal(t, "client-order-17", aws.ToString(again.MessageAttributes[queue.MessageIDKey].StringValue))
}

func TestFromWireWithoutCallerIDUsesServiceID(t *testing.T) {
	out := fromWire(types.Message{MessageId: aws.String("sqs-9"), Body: aws.String("x")})
	assert.Equal(t, "sqs-9", out.ID)
}
