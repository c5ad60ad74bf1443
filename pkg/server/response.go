package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"cuisine/pkg/io"
	"cuisine/pkg/model"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error writing response")
	}
}

type errorResponse struct {
	Error   string   `json:"error"`
	Status  string   `json:"status"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, errorResponse{Error: message, Status: "error"})
}

func writeBadRequestResponse(w http.ResponseWriter, message string) {
	writeErrorResponse(w, http.StatusBadRequest, message)
}

func writeInternalServerErrorResponse(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Internal Server Error"
	}
	writeErrorResponse(w, http.StatusInternalServerError, message)
}

// writePipelineError maps pipeline errors to status codes. Input problems are the
// caller's fault; an unreadable data file is not.
func writePipelineError(w http.ResponseWriter, err error) {
	var mismatch *model.SchemaMismatchError
	var unseen *model.UnseenCategoryError
	var loadErr *io.DataLoadError
	switch {
	case errors.As(err, &mismatch):
		writeJSONResponse(w, http.StatusBadRequest, errorResponse{
			Error:   err.Error(),
			Status:  "error",
			Missing: mismatch.Missing,
			Invalid: mismatch.Invalid,
		})
	case errors.As(err, &unseen), errors.Is(err, model.ErrInvalidParameter):
		writeBadRequestResponse(w, err.Error())
	case errors.As(err, &loadErr):
		log.Error().Err(err).Msg("Data file unavailable")
		writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		writeInternalServerErrorResponse(w, "")
	}
}
