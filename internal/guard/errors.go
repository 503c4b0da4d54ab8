package guard

import (
	"errors"
	"net/http"
)

// Error taxonomy for the request guard chain. Every guard failure
// short-circuits the request with one of these sentinels; handlers map them
// to HTTP statuses through HTTPStatus and never leak internals beyond the
// JSON message.
var (
	// ErrUnauthenticated covers a missing, malformed, unsigned or expired
	// token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden covers a role mismatch or cross-tenant access attempt.
	ErrForbidden = errors.New("forbidden")

	// ErrSelfAction is returned when an admin targets their own account
	// with a destructive or role-changing operation.
	ErrSelfAction = errors.New("self action forbidden")

	// ErrNotFound is returned both when a resource does not exist and when
	// it exists in another tenant. The two cases are intentionally
	// indistinguishable so tenant membership cannot be probed by id.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is returned when a member hits the note limit.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrConflict covers duplicate email or slug on registration.
	ErrConflict = errors.New("conflict")

	// ErrEmailDelivery is returned when the invitation email cannot be
	// dispatched.
	ErrEmailDelivery = errors.New("email delivery failed")

	// ErrInternal covers unexpected data-store failures.
	ErrInternal = errors.New("internal error")
)

// HTTPStatus maps a guard error to the HTTP status the API contract uses.
// Forbidden and self-action map to 401, matching the observed behavior of
// the product (the surface has no 403).
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbidden), errors.Is(err, ErrSelfAction):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
