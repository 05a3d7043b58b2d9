package errs

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure so handlers can map it to an HTTP status
// and clients can decide whether a retry makes sense.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindExtraction      Kind = "extraction_failed"
	KindUnsupportedType Kind = "unsupported_type"
	KindQuotaExceeded   Kind = "quota_exceeded"
	KindAccessDenied    Kind = "access_denied"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindNotFound        Kind = "not_found"
	KindTooManyRequests Kind = "too_many_requests"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code documented in the API error policy.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindExtraction, KindUnsupportedType:
		return fiber.StatusBadRequest
	case KindQuotaExceeded, KindTooManyRequests:
		return fiber.StatusTooManyRequests
	case KindAccessDenied:
		return fiber.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return fiber.StatusGatewayTimeout
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
