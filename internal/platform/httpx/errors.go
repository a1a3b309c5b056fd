// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
//
// Authentication failures present as one generic outcome regardless of the
// sub-reason; unconfirmed writes present as a retryable server error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired credentials")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrUnconfirmedWrite):
		Problem(w, http.StatusServiceUnavailable, "Write Not Confirmed", "the operation could not be confirmed, retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
