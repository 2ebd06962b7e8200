package widget

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chaos-io/bgremover/preview"
	nhttp "github.com/chaos-io/bgremover/util/http"
)

// ErrClosed is returned by operations on a torn down widget.
var ErrClosed = errors.New("widget closed")

type ValidationReason string

const (
	ReasonUnsupportedType ValidationReason = "unsupported type"
	ReasonTooLarge        ValidationReason = "too large"
)

// ValidationError rejects a selection before anything leaves the process.
type ValidationError struct {
	Reason   ValidationReason
	MIMEType string
	Size     int64
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonUnsupportedType:
		return "Please upload a valid image file (JPEG, PNG, or WebP)"
	case ReasonTooLarge:
		return "File size must be less than 5MB"
	default:
		return string(e.Reason)
	}
}

// RequestError is a failed remove-bg call. Status is zero for transport faults.
type RequestError struct {
	Status int
	Reason string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	if e.Reason != "" {
		return e.Reason
	}
	return "An error occurred"
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func newRequestError(err error) *RequestError {
	if code := nhttp.StatusCode(err); code != 0 {
		return &RequestError{Status: code, Reason: http.StatusText(code), Err: err}
	}
	return &RequestError{Reason: err.Error(), Err: err}
}

// PreviewError is a local failure to hold a preview. No request is involved.
type PreviewError struct {
	Role preview.Role
	Err  error
}

func (e *PreviewError) Error() string {
	return "An error occurred"
}

func (e *PreviewError) Unwrap() error {
	return e.Err
}

type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation"
	KindRequest    ErrorKind = "request"
	KindPreview    ErrorKind = "preview"
	KindUnknown    ErrorKind = "unknown"
)

// KindOf classifies an error held by the error surface.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	var re *RequestError
	var pe *PreviewError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &re):
		return KindRequest
	case errors.As(err, &pe):
		return KindPreview
	default:
		return KindUnknown
	}
}
