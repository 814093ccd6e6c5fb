// Package api provides the HTTP client for the Gestion SMAC backend:
// request construction, bearer authentication, JSON codec and error
// classification. Failed requests surface immediately, with no automatic
// retry, because every mutation has an optimistic cache write waiting on
// the outcome to either reconcile or roll back.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gestion-smac/smacctl/internal/entity"
)

// MsgUnreachable is the user-facing message for a network-level failure.
const MsgUnreachable = "Impossible de joindre le serveur"

// Sentinel errors for response classification.
// Use errors.Is(err, api.ErrSessionExpired) to check.
var (
	ErrUnreachable    = errors.New("api: serveur injoignable")
	ErrSessionExpired = errors.New("api: session expirée")
	ErrValidation     = errors.New("api: validation refusée")
	ErrNotFound       = errors.New("api: introuvable")
	ErrConflict       = errors.New("api: conflit")
	ErrServerError    = errors.New("api: erreur serveur")
	ErrImportRejected = errors.New("api: import refusé")
)

// tokenRe matches the backend's token-related failure messages
// (expired, invalid or missing token), case-insensitive.
var tokenRe = regexp.MustCompile(`(?i)token`)

// APIError wraps a sentinel error with the HTTP status, the backend's
// message and any per-field validation errors.
type APIError struct {
	StatusCode int
	Message    string
	Fields     entity.FieldErrors
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorResponse is the backend's error body shape. Field errors arrive
// under "errors" when the rejection maps to specific form fields.
type errorResponse struct {
	Message string             `json:"message"`
	Errors  entity.FieldErrors `json:"errors"`
}

// classify maps a non-2xx response to a sentinel error. A token-related
// message always means the session is gone, whatever the status code.
func classify(status int, body errorResponse) error {
	if tokenRe.MatchString(body.Message) || status == http.StatusUnauthorized {
		return ErrSessionExpired
	}

	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case len(body.Errors) > 0:
		return ErrValidation
	case status >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return ErrValidation
	}
}

// IsSessionExpired reports whether err means the stored credential is no
// longer valid. Callers clear the token file and direct the user to login.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// FieldsOf extracts per-field validation messages from err, if any.
func FieldsOf(err error) entity.FieldErrors {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}

	return nil
}
