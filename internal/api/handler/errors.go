package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hoopstat/scorekeeper/internal/api/apierr"
	"github.com/hoopstat/scorekeeper/internal/model"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeBody decodes a JSON request body, writing an invalid request error on failure
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return false
	}
	return true
}

func gameIDFrom(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["game_id"])
}
