// Package sharefile provides an HTTP client for the ShareFile legacy RPC
// ("https") API and the OAuth-authenticated REST API.
package sharefile

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, sharefile.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("sharefile: bad request")
	ErrUnauthorized = errors.New("sharefile: unauthorized")
	ErrForbidden    = errors.New("sharefile: forbidden")
	ErrNotFound     = errors.New("sharefile: not found")
	ErrConflict     = errors.New("sharefile: conflict")
	ErrThrottled    = errors.New("sharefile: throttled")
	ErrServerError  = errors.New("sharefile: server error")
)

// Sentinel errors for client-side faults.
var (
	// ErrNotAuthenticated is returned by REST calls when no OAuth token could
	// be acquired.
	ErrNotAuthenticated = errors.New("sharefile: not authenticated")

	// ErrInvalidAuthKind indicates a request primitive was tagged with an
	// unknown AuthKind. It is a programming error and never retried.
	ErrInvalidAuthKind = errors.New("sharefile: invalid auth kind")

	// ErrHoldingAccountNotFound is returned by DeleteEmployee when the account
	// that should receive the deleted user's content cannot be resolved.
	ErrHoldingAccountNotFound = errors.New("sharefile: could not get ID of holding account")

	// ErrHomeFolderNotFound is returned by UploadFileToHome when the home
	// folder listing carries no entries.
	ErrHomeFolderNotFound = errors.New("sharefile: home folder not found")
)

// APIError wraps a sentinel error with the HTTP status code and the response
// body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sharefile: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// EnvelopeError is the Go error form of a legacy envelope with error=true.
type EnvelopeError struct {
	Endpoint string
	Op       string
	Message  string
	Code     int
}

func (e *EnvelopeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sharefile: %s/%s failed (code %d)", e.Endpoint, e.Op, e.Code)
	}

	return fmt.Sprintf("sharefile: %s/%s failed (code %d): %s", e.Endpoint, e.Op, e.Code, e.Message)
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isSuccess reports whether code is a 2xx status.
func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
