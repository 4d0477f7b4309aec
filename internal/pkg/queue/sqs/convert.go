package sqs

import (
	"encoding/base64"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"aws-sqs-messenger/internal/pkg/queue"
)

// System attributes land in the property map on receive; they are dropped
// again on send so a received message can be forwarded as is.
var systemAttributes = func() map[string]bool {
	names := types.MessageSystemAttributeName("").Values()
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[string(n)] = true
	}
	return set
}()

// toWire builds the batch entry for m. The entry id is its position in the
// batch; a caller-assigned m.ID rides along as the queue.MessageIDKey attribute.
func toWire(index int, m queue.Message) types.SendMessageBatchRequestEntry {
	entry := types.SendMessageBatchRequestEntry{
		Id:          aws.String(strconv.Itoa(index)),
		MessageBody: aws.String(string(m.Body)),
	}
	set := func(k, v string) {
		if entry.MessageAttributes == nil {
			entry.MessageAttributes = make(map[string]types.MessageAttributeValue, len(m.Properties)+1)
		}
		entry.MessageAttributes[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	for k, v := range m.Properties {
		if k == queue.DeliveryHandleKey || k == queue.MessageIDKey || systemAttributes[k] {
			continue
		}
		set(k, v)
	}
	if m.ID != "" {
		set(queue.MessageIDKey, m.ID)
	}
	return entry
}

// fromWire converts a received message. Binary attributes are base64 encoded.
// A caller-assigned id carried in queue.MessageIDKey wins over the service id.
func fromWire(m types.Message) queue.Message {
	props := make(map[string]string, len(m.Attributes)+len(m.MessageAttributes)+1)
	for k, v := range m.Attributes {
		props[k] = v
	}
	for k, v := range m.MessageAttributes {
		switch {
		case v.StringValue != nil:
			props[k] = *v.StringValue
		case v.BinaryValue != nil:
			props[k] = base64.StdEncoding.EncodeToString(v.BinaryValue)
		}
	}
	if h := aws.ToString(m.ReceiptHandle); h != "" {
		props[queue.DeliveryHandleKey] = h
	}
	id := aws.ToString(m.MessageId)
	if callerID, ok := props[queue.MessageIDKey]; ok {
		delete(props, queue.MessageIDKey)
		if callerID != "" {
			id = callerID
		}
	}
	return queue.Message{
		ID:         id,
		Body:       []byte(aws.ToString(m.Body)),
		Properties: props,
	}
}

// batchFailures maps failed entries of the batch starting at off back to the caller's slice.
func batchFailures(off int, batch []queue.Message, failed []types.BatchResultErrorEntry) []queue.BatchFailure {
	failures := make([]queue.BatchFailure, 0, len(failed))
	for _, f := range failed {
		i, err := strconv.Atoi(aws.ToString(f.Id))
		if err != nil || i < 0 || i >= len(batch) {
			continue
		}
		failures = append(failures, queue.BatchFailure{
			Index:       off + i,
			ID:          batch[i].ID,
			Code:        aws.ToString(f.Code),
			Message:     aws.ToString(f.Message),
			SenderFault: f.SenderFault,
		})
	}
	return failures
}
