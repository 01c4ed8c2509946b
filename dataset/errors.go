package dataset

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Use errors.Is against these; the concrete types below carry details.
var (
	// ErrEmptyInput means the model returned no text to extract from.
	ErrEmptyInput = errors.New("empty model output")
	// ErrFormat means no JSON value could be recovered from the model text.
	ErrFormat = errors.New("no JSON recoverable from model output")
	// ErrTransientAPI marks statuses worth retrying on the same model (429 and 5xx gateway errors).
	ErrTransientAPI = errors.New("transient annotation API failure")
	// ErrPermanentAPI marks statuses that abandon the current model.
	ErrPermanentAPI = errors.New("permanent annotation API failure")
	// ErrInvalidVideoID means an index row's video_id is not an 11-character id.
	ErrInvalidVideoID = errors.New("invalid video id")
)

// FormatError reports that none of the extraction strategies produced valid JSON.
type FormatError struct {
	Len int
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no JSON object found in model output (len=%d): %v", e.Len, e.Err)
	}
	return fmt.Sprintf("no JSON object found in model output (len=%d)", e.Len)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// APIError is a non-200 response (or a transport failure, StatusCode 0) from the annotation API.
type APIError struct {
	Model      string
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("annotation API %s: status %d", e.Model, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if IsTransientStatus(e.StatusCode) {
		return ErrTransientAPI
	}
	return ErrPermanentAPI
}

// IsTransientStatus reports whether status should be retried with backoff.
// Status 0 stands for "no HTTP response" (timeout, connection reset).
func IsTransientStatus(status int) bool {
	switch status {
	case 0,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
