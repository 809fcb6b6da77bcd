package httptransport

import (
	"encoding/json"
	"net/http"

	"enroll/pkg/domainerrors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain error codes onto HTTP statuses. Internal details
// never reach the client; the generic message is enough.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeBadRequest:
		status = http.StatusBadRequest
		message = err.Error()
	case domainerrors.CodeNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case domainerrors.CodeAlreadyExists:
		status = http.StatusConflict
		message = err.Error()
	case domainerrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
		message = err.Error()
	}

	writeJSON(w, status, map[string]string{"error": message})
}
