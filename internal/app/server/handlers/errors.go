package handlers

import (
	"errors"
	"net/http"

	"github.com/Team-Zemo/omninet-core-sub000/internal/core/domain"
)

// errorCode maps domain sentinels onto the wire taxonomy.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrCallNotFound):
		return "NOT_FOUND"
	case errors.Is(err, domain.ErrNotContact),
		errors.Is(err, domain.ErrAlreadyInCall),
		errors.Is(err, domain.ErrCalleeOffline),
		errors.Is(err, domain.ErrInvalidCallState):
		return "INVALID_STATE"
	case errors.Is(err, domain.ErrNotCallParticipant):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// httpStatus maps the same taxonomy onto REST responses: NotFound -> 404,
// InvalidState -> 409 conflict, Unauthorized -> 403.
func httpStatus(err error) int {
	switch errorCode(err) {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_STATE":
		return http.StatusConflict
	case "UNAUTHORIZED":
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
