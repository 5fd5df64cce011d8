package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/errtrack"
)

type errorBody struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

// RespondWithError writes msg to the client. err is never exposed; server
// errors are reported to error tracking.
func RespondWithError(w http.ResponseWriter, code int, msg string, err error) {
	if err != nil && code >= http.StatusInternalServerError {
		errtrack.CaptureError(err, map[string]interface{}{"status": code})
	}
	RespondWithJSON(w, code, errorBody{Error: msg})
}

// RespondWithAppError maps a domain error to its HTTP status. Errors that do
// not carry a code become a 500 with a generic message.
func RespondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) {
		errtrack.CaptureError(err, nil)
		RespondWithJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal server error",
			Code:  apperr.CodeInternal,
		})
		return
	}
	status := StatusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		errtrack.CaptureError(err, nil)
	}
	RespondWithJSON(w, status, errorBody{Error: appErr.Message, Code: appErr.Code})
}

func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument, apperr.CodeInvalidToken:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyClaimed, apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodeLetterGone:
		return http.StatusGone
	case apperr.CodeTooEarly:
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}
