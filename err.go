package feishu

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/feishudocs/feishu.go/pkg/constants"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	// KindRemote is any non-zero response code with no more specific class.
	KindRemote ErrorKind = iota
	// KindAuth covers invalid app credentials and expired or rejected tokens.
	KindAuth
	// KindNotFound covers missing or inaccessible documents, blocks and nodes.
	KindNotFound
	// KindPermission means the caller lacks the scope for the operation.
	KindPermission
	// KindRateLimit is returned only after the retry budget is exhausted.
	KindRateLimit
	// KindValidation covers malformed requests rejected by the store.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission"
	case KindRateLimit:
		return "rate limited"
	case KindValidation:
		return "validation"
	default:
		return "remote"
	}
}

// APIError carries the remote code and message of a failed call verbatim.
type APIError struct {
	Kind       ErrorKind
	Code       int
	Msg        string
	HTTPStatus int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: feishu api error %d: %s", e.Kind, e.Code, e.Msg)
}

// TransportError wraps a network-level failure or timeout. Transport errors
// are never retried automatically.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed request caught before it is sent.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// classifyCode maps a response envelope onto the error taxonomy, preserving
// the original code and message for diagnostics.
func classifyCode(status, code int, msg string) *APIError {
	kind := KindRemote
	switch {
	case code == constants.CodeTooManyRequests || status == http.StatusTooManyRequests:
		kind = KindRateLimit
	case isTokenCode(code):
		kind = KindAuth
	case code == constants.CodeNotFound || status == http.StatusNotFound:
		kind = KindNotFound
	case code == constants.CodePermissionDenied || code == constants.CodeForbidden || status == http.StatusForbidden:
		kind = KindPermission
	case code == constants.CodeInvalidParam || status == http.StatusBadRequest:
		kind = KindValidation
	}
	return &APIError{Kind: kind, Code: code, Msg: msg, HTTPStatus: status}
}

func isTokenCode(code int) bool {
	switch code {
	case constants.CodeAccessTokenExpired, constants.CodeTenantTokenInvalid, constants.CodeUserTokenInvalid:
		return true
	}
	return false
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return hasKind(err, KindAuth)
}

// IsNotFound reports whether err means the target does not exist or is
// inaccessible.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsPermission reports whether err is a missing-scope failure.
func IsPermission(err error) bool {
	return hasKind(err, KindPermission)
}

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool {
	return hasKind(err, KindRateLimit)
}

// IsValidation reports whether err is a malformed-request failure, either
// caught client-side or rejected by the store.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || hasKind(err, KindValidation)
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
