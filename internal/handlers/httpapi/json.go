package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fableforge/rules-api/internal/errors"
)

// Request bodies are small; anything bigger is not a legitimate client
const maxBodyBytes = 1 << 20

// errorBody is the uniform error envelope
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.InvalidArgumentf("invalid request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// writeError maps the internal error taxonomy onto HTTP statuses. Internal
// detail stays in the logs; the client sees the code and message only.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", code.String(), "error", err)
	}

	var body errorBody
	body.Error.Code = code.String()
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}
