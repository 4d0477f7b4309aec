package sqs

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

// Codes SQS uses for a queue that does not exist. The JSON protocol reports
// QueueDoesNotExist; the legacy query protocol the prefixed form.
var missingQueueCodes = map[string]bool{
	"QueueDoesNotExist":                       true,
	"AWS.SimpleQueueService.NonExistentQueue": true,
}

func classify(err error) (string, bool) {
	var qne *types.QueueDoesNotExist
	if errors.As(err, &qne) {
		return qne.ErrorCode(), true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code, missingQueueCodes[code]
	}
	return "", false
}
