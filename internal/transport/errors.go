package transport

import (
	"fmt"
	"net/http"
	"strings"

	"assetline/internal/fault"
)

// NetworkError wraps a transport-level failure (unreachable host, timeout).
// These are the only errors the client will retry, and only for reads.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Kind() fault.Kind { return fault.KindNetwork }

// APIError is a backend-reported failure: a non-2xx status or an envelope
// with success=false.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Errors) > 0 {
		return fmt.Sprintf("api error: status=%d %s: %s", e.StatusCode, msg, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("api error: status=%d %s", e.StatusCode, msg)
}

func (e *APIError) Kind() fault.Kind {
	switch e.StatusCode {
	case http.StatusNotFound:
		return fault.KindNotFound
	case http.StatusConflict:
		return fault.KindAlreadyResolved
	default:
		return fault.KindBackend
	}
}

// MalformedResponseError reports a body that is neither a raw JSON array nor
// a response envelope.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return "malformed response: " + e.Detail
}

func (e *MalformedResponseError) Kind() fault.Kind { return fault.KindBackend }
