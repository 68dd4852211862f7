package webhook

import (
	"errors"
	"net/http"

	"github.com/pontoumdigital/blogsync/blog/domain"
)

type ErrorKind int

const (
	KindUnauthorized ErrorKind = iota + 1
	KindBadRequest
	KindConfiguration
	KindIntegration
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindConfiguration:
		return "configuration"
	case KindIntegration:
		return "integration"
	default:
		return "unknown"
	}
}

// Error is a failure to handle an event, classified for the HTTP response.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the HTTP status code returned to the CMS. Conflicts map to 502 so the
// CMS retries the delivery.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindIntegration:
		if errors.Is(e.Err, domain.ErrConflict) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error document for the response.
func (e *Error) Body() map[string]string {
	switch e.Kind {
	case KindUnauthorized:
		return map[string]string{"error": "Unauthorized"}
	case KindConfiguration:
		return map[string]string{"error": "Server configuration error"}
	case KindIntegration:
		body := map[string]string{"error": e.Message}
		if e.Err != nil {
			body["details"] = e.Err.Error()
		}
		return body
	default:
		return map[string]string{"error": e.Message}
	}
}

func unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
}

func badRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func misconfigured(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func integration(message string, err error) *Error {
	return &Error{Kind: KindIntegration, Message: message, Err: err}
}
