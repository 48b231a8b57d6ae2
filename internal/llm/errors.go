package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/myrjola/recoverfit/internal/errors"
	"github.com/openai/openai-go/v3"
)

var (
	ErrEmptyResponse = errors.NewSentinel("completion has no content")
	ErrNoJSONObject  = errors.NewSentinel("no JSON object in reply")
)

// Kind classifies why a completion call failed.
type Kind string

const (
	KindRateLimit      Kind = "rate_limit"
	KindAuthentication Kind = "authentication"
	KindPermission     Kind = "permission"
	KindNotFound       Kind = "not_found"
	KindInvalidRequest Kind = "invalid_request"
	KindServer         Kind = "server_error"
	KindTimeout        Kind = "timeout"
	KindCanceled       Kind = "canceled"
	KindUnknown        Kind = "unknown"
)

// Error is returned by [Client.Complete].
type Error struct {
	Kind       Kind
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func classify(ctx context.Context, err error) *Error {
	e := &Error{Kind: KindUnknown, StatusCode: 0, Retryable: false, Err: err}

	var apiErr *openai.Error
	switch {
	case errors.Is(err, context.Canceled):
		e.Kind = KindCanceled
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			e.Err = errors.Join(err, cause)
		}
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindTimeout
		e.Retryable = true
	case errors.As(err, &apiErr):
		e.StatusCode = apiErr.StatusCode
		e.Kind, e.Retryable = kindForStatus(apiErr.StatusCode)
	}
	return e
}

func kindForStatus(status int) (Kind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit, true
	case status == http.StatusUnauthorized:
		return KindAuthentication, false
	case status == http.StatusForbidden:
		return KindPermission, false
	case status == http.StatusNotFound:
		return KindNotFound, false
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidRequest, false
	case status >= http.StatusInternalServerError:
		return KindServer, true
	default:
		return KindUnknown, false
	}
}

// FailureKind tags a fallback value with the reason the remote answer could not be used.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureTransport means the backend was unreachable, timed out or answered with an error status.
	FailureTransport FailureKind = "transport"
	// FailureFormat means the reply held no parseable JSON object of the expected shape.
	FailureFormat FailureKind = "format"
	// FailureContent means the JSON parsed but violated a policy such as the minimum exercise count.
	FailureContent FailureKind = "content"
	// FailureCanceled means the caller gave up, for example because a newer request superseded this one.
	FailureCanceled FailureKind = "canceled"
)

// ClassifyFailure maps an error from a [Completer] to a failure kind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindCanceled {
		return FailureCanceled
	}
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	return FailureTransport
}
