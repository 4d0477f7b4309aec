package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Operation names used in errors, logs and metrics.
const (
	OpCreateChannels = "create_channels"
	OpListChannels   = "list_channels"
	OpDeleteChannels = "delete_channels"
	OpCount          = "count"
	OpSend           = "send"
	OpReceive        = "receive"
	OpPeek           = "peek"
	OpDelete         = "delete"
)

// Kind classifies a Messenger failure independently of the backend.
type Kind int

const (
	KindTransport Kind = iota
	KindInvalidArgument
	KindChannelMissing
	KindDeliveryHandle
	KindCanceled
)

// Sentinels matched by errors.Is against any *Error of the same Kind.
var (
	ErrTransport       = errors.New("transport failure")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrChannelMissing  = errors.New("channel missing")
	ErrDeliveryHandle  = errors.New("message has no delivery handle")
	ErrCanceled        = errors.New("operation canceled")
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindChannelMissing:
		return "channel_missing"
	case KindDeliveryHandle:
		return "delivery_handle"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindChannelMissing:
		return ErrChannelMissing
	case KindDeliveryHandle:
		return ErrDeliveryHandle
	case KindCanceled:
		return ErrCanceled
	default:
		return ErrTransport
	}
}

// Error is the error type returned by every Messenger operation.
// Code keeps the original service error code for diagnostics.
type Error struct {
	Kind    Kind
	Op      string
	Channel string
	Code    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Channel != "" {
		fmt.Fprintf(&b, " %q", e.Channel)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.sentinel().Error())
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the Kind of err. Errors not produced by this package count as transport failures.
func KindOf(err error) Kind {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindTransport
}

// CodeOf returns the service error code carried by err, if any.
func CodeOf(err error) string {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// Classifier extracts the service error code from a backend error and reports
// whether the code means the channel does not exist.
type Classifier func(err error) (code string, missing bool)

// Translator rewrites backend errors into the Kind taxonomy.
type Translator struct {
	Classify Classifier
}

// ChannelMissing reports whether err is the service's "channel does not exist" condition.
func (t Translator) ChannelMissing(err error) bool {
	if err == nil || t.Classify == nil {
		return false
	}
	_, missing := t.Classify(err)
	return missing
}

// Translate maps err for op on channel. A missing channel is only reported as
// KindChannelMissing on send; every other operation sees it as a transport failure.
func (t Translator) Translate(op, channel string, err error) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindCanceled, Op: op, Channel: channel, Err: err}
	}
	var code string
	var missing bool
	if t.Classify != nil {
		code, missing = t.Classify(err)
	}
	kind := KindTransport
	if missing && op == OpSend {
		kind = KindChannelMissing
	}
	return &Error{Kind: kind, Op: op, Channel: channel, Code: code, Err: err}
}

// CheckContext returns a KindCanceled error once ctx is done. Backends call it
// before every remote call.
func CheckContext(ctx context.Context, op, channel string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: KindCanceled, Op: op, Channel: channel, Err: err}
	}
	return nil
}

// InvalidArgument builds a KindInvalidArgument error.
func InvalidArgument(op, channel, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Channel: channel, Err: fmt.Errorf(format, args...)}
}

// BatchFailure describes one entry the service rejected inside an accepted batch request.
type BatchFailure struct {
	Index       int // position in the caller's slice
	ID          string
	Code        string
	Message     string
	SenderFault bool
}

// BatchError lists the entries that failed across all batches of a send or delete call.
type BatchError struct {
	Failures []BatchFailure
}

func (e *BatchError) Error() string {
	first := e.Failures[0]
	msg := fmt.Sprintf("%d entries failed; first at index %d: %s", len(e.Failures), first.Index, first.Code)
	if first.Message != "" {
		msg += ": " + first.Message
	}
	return msg
}

// BatchFailed wraps failures as a transport error, or returns nil when there are none.
func BatchFailed(op, channel string, failures []BatchFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return &Error{
		Kind:    KindTransport,
		Op:      op,
		Channel: channel,
		Code:    failures[0].Code,
		Err:     &BatchError{Failures: failures},
	}
}
