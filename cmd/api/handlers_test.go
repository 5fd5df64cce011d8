package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnhsh/letterbox/internal/auth"
	"github.com/mnhsh/letterbox/internal/config"
	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/memstore"
)

const testSecret = "handler-secret"

type testServer struct {
	t     *testing.T
	h     http.Handler
	clock *letter.ManualClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server:    config.Server{Memory: true},
		JWT:       config.JWT{Secret: testSecret},
		RateLimit: config.RateLimit{RPS: 1000, Burst: 1000},
	}
	clock := letter.NewManualClock(time.Now().UTC())
	svc := letter.NewService(memstore.New(), letter.WithClock(clock), letter.WithRetryBackoff(time.Microsecond))
	return &testServer{t: t, h: newServer(cfg, svc, logger.Nop()), clock: clock}
}

func (s *testServer) do(method, path string, user uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		tok, err := auth.MakeJWT(user, testSecret, time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestInviteFlow(t *testing.T) {
	s := newTestServer(t)
	sender, claimer := uuid.New(), uuid.New()
	unlockAt := s.clock.Now().Add(time.Hour)

	rec := s.do(http.MethodPost, "/v1/letters", sender, map[string]interface{}{
		"recipient_kind": "invite",
		"content":        "open me later",
		"unlock_at":      unlockAt,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[letter.CreateLetterResult](t, rec)
	require.NotEmpty(t, created.InviteToken)

	rec = s.do(http.MethodGet, "/v1/invites/"+created.InviteToken, uuid.Nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preview := decode[map[string]interface{}](t, rec)
	assert.Equal(t, false, preview["claimed"])
	assert.NotContains(t, preview, "content")

	rec = s.do(http.MethodPost, "/v1/invites/"+created.InviteToken+"/claim", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/invites/"+created.InviteToken+"/claim", claimer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	claim := decode[letter.ClaimResult](t, rec)
	assert.Equal(t, created.LetterID, claim.LetterID)
	assert.Equal(t, letter.Sealed, claim.Visibility)

	rec = s.do(http.MethodPost, "/v1/invites/"+created.InviteToken+"/claim", uuid.New(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := "/v1/letters/" + created.LetterID.String()
	rec = s.do(http.MethodPost, path+"/open", claimer, nil)
	assert.Equal(t, http.StatusLocked, rec.Code)

	s.clock.Advance(time.Hour)
	rec = s.do(http.MethodPost, path+"/open", claimer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	opened := decode[letter.OpenResult](t, rec)
	assert.Equal(t, "open me later", opened.Content)

	rec = s.do(http.MethodPost, path+"/reply", claimer, map[string]string{"text": "got it", "emoji": "✨"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, path+"/reply", claimer, map[string]string{"text": "again", "emoji": "✨"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, path+"/reply", sender, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "got it", decode[letter.ReplyView](t, rec).Text)

	rec = s.do(http.MethodPost, path+"/reply/viewed", sender, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[letter.ReplyView](t, rec).SenderViewedAt)

	rec = s.do(http.MethodGet, "/v1/connections", sender, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conns := decode[map[string][]letter.ConnectionView](t, rec)
	require.Len(t, conns["connections"], 1)
	assert.Equal(t, claimer, conns["connections"][0].Identity)

	rec = s.do(http.MethodGet, "/v1/letters?box=received", claimer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]letter.LetterView](t, rec)
	require.Len(t, list["letters"], 1)
	assert.Equal(t, letter.Opened, list["letters"][0].Visibility)
}

func TestInviteErrors(t *testing.T) {
	s := newTestServer(t)
	sender := uuid.New()

	rec := s.do(http.MethodGet, "/v1/invites/short", uuid.Nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decode[map[string]string](t, rec)["code"])

	rec = s.do(http.MethodPost, "/v1/letters", sender, map[string]interface{}{
		"recipient_kind": "invite",
		"content":        "x",
		"unlock_at":      s.clock.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[letter.CreateLetterResult](t, rec)

	rec = s.do(http.MethodDelete, "/v1/letters/"+created.LetterID.String(), sender, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/v1/invites/"+created.InviteToken, uuid.Nil, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	rec = s.do(http.MethodPost, "/v1/invites/"+created.InviteToken+"/claim", uuid.New(), nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestSelfLetterReflection(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()

	rec := s.do(http.MethodPost, "/v1/letters", owner, map[string]interface{}{
		"recipient_kind": "self",
		"title":          "note to self",
		"content":        "did you do it?",
		"unlock_at":      s.clock.Now().Add(time.Minute),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[letter.CreateLetterResult](t, rec)
	path := "/v1/letters/" + created.LetterID.String()

	rec = s.do(http.MethodPost, path+"/reflection", owner, map[string]string{"answer": "yes"})
	assert.Equal(t, http.StatusLocked, rec.Code)

	s.clock.Advance(time.Minute)
	rec = s.do(http.MethodPost, path+"/open", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, path+"/reflection", owner, map[string]string{"answer": "perhaps"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, path+"/reflection", owner, map[string]string{"answer": "yes"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodPost, path+"/reflection", owner, map[string]string{"answer": "no"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, path, owner, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateLetterMultipart(t *testing.T) {
	s := newTestServer(t)
	sender, recipient := uuid.New(), uuid.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("recipient_kind", "user"))
	require.NoError(t, mw.WriteField("recipient_id", recipient.String()))
	require.NoError(t, mw.WriteField("content", "hi"))
	require.NoError(t, mw.WriteField("unlock_at", s.clock.Now().Add(time.Hour).Format(time.RFC3339)))
	require.NoError(t, mw.WriteField("anonymous", "true"))
	require.NoError(t, mw.Close())

	tok, err := auth.MakeJWT(sender, testSecret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/letters", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[letter.CreateLetterResult](t, rec)

	rec = s.do(http.MethodGet, "/v1/letters/"+created.LetterID.String(), recipient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]interface{}](t, rec)
	assert.NotContains(t, view, "sender_id", "anonymous sender stays hidden")
	assert.NotContains(t, view, "content")
	assert.Equal(t, "SEALED", view["visibility"])
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	user := uuid.New()

	rec := s.do(http.MethodGet, "/v1/letters/not-a-uuid", user, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/v1/letters?limit=abc", user, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/letters", strings.NewReader(`{"content":`))
	tok, err := auth.MakeJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/healthz", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
