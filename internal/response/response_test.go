package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnhsh/letterbox/internal/apperr"
)

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   apperr.Code
	}{
		{apperr.ErrNotFound, http.StatusNotFound, apperr.CodeNotFound},
		{apperr.ErrForbidden, http.StatusForbidden, apperr.CodePermissionDenied},
		{apperr.ErrTooEarly, http.StatusLocked, apperr.CodeTooEarly},
		{apperr.ErrAlreadyClaimed, http.StatusConflict, apperr.CodeAlreadyClaimed},
		{apperr.ErrAlreadyExists, http.StatusConflict, apperr.CodeAlreadyExists},
		{apperr.ErrInvalidToken, http.StatusBadRequest, apperr.CodeInvalidToken},
		{apperr.ErrLetterGone, http.StatusGone, apperr.CodeLetterGone},
		{apperr.InvalidArg("bad"), http.StatusBadRequest, apperr.CodeInvalidArgument},
		{apperr.Unauthorized("who"), http.StatusUnauthorized, apperr.CodeUnauthenticated},
		{apperr.ErrInternal, http.StatusInternalServerError, apperr.CodeInternal},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, apperr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondWithAppError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["code"])
			assert.NotContains(t, body["error"], "pq:")
		})
	}
}

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithJSON(rec, http.StatusCreated, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"1"}`, rec.Body.String())
}
