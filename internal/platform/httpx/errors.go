package httpx

import (
	"errors"
	"net/http"

	"github.com/tindero-pos/tindero/internal/shared"
)

// RespondError maps domain errors onto HTTP statuses. Anything not
// recognised is a transient 500: the client retries via the offline queue
// and must not see internal detail.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
