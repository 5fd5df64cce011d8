package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnhsh/letterbox/internal/apperr"
	"github.com/mnhsh/letterbox/internal/auth"
	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
	"github.com/mnhsh/letterbox/internal/response"
)

const maxUploadBytes = 10 << 20

type api struct {
	svc    *letter.Service
	logger *logger.Logger
}

func newAPI(svc *letter.Service, log *logger.Logger) *api {
	return &api{svc: svc, logger: log}
}

type createLetterRequest struct {
	RecipientKind letter.RecipientKind `json:"recipient_kind"`
	RecipientID   *uuid.UUID           `json:"recipient_id"`
	Title         string               `json:"title"`
	Content       string               `json:"content"`
	UnlockAt      time.Time            `json:"unlock_at"`
	Anonymous     bool                 `json:"anonymous"`
}

func (req createLetterRequest) command(sender uuid.UUID) letter.CreateLetterCommand {
	cmd := letter.CreateLetterCommand{
		Sender:    sender,
		Recipient: letter.RecipientTarget{Kind: req.RecipientKind},
		Title:     req.Title,
		Content:   req.Content,
		UnlockAt:  req.UnlockAt,
		Anonymous: req.Anonymous,
	}
	if req.RecipientID != nil {
		cmd.Recipient.ID = *req.RecipientID
	}
	return cmd
}

func (a *api) handlerCreateLetter(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var cmd letter.CreateLetterCommand
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.RespondWithError(w, http.StatusBadRequest, "file too large", err)
			return
		}
		req, err := createRequestFromForm(r)
		if err != nil {
			response.RespondWithAppError(w, err)
			return
		}
		cmd = req.command(userID)

		file, _, err := r.FormFile("attachment")
		switch {
		case err == nil:
			defer file.Close()
			cmd.Attachment = file
		case err != http.ErrMissingFile:
			response.RespondWithError(w, http.StatusBadRequest, "error retrieving file", err)
			return
		}
	} else {
		var req createLetterRequest
		if err := decodeJSON(r, &req); err != nil {
			response.RespondWithAppError(w, err)
			return
		}
		cmd = req.command(userID)
	}

	res, err := a.svc.CreateLetter(r.Context(), cmd)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusCreated, res)
}

func createRequestFromForm(r *http.Request) (createLetterRequest, error) {
	req := createLetterRequest{
		RecipientKind: letter.RecipientKind(r.FormValue("recipient_kind")),
		Title:         r.FormValue("title"),
		Content:       r.FormValue("content"),
	}
	if v := r.FormValue("recipient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return req, apperr.InvalidArg("invalid recipient_id")
		}
		req.RecipientID = &id
	}
	unlockAt, err := time.Parse(time.RFC3339, r.FormValue("unlock_at"))
	if err != nil {
		return req, apperr.InvalidArg("invalid date format")
	}
	req.UnlockAt = unlockAt
	if v := r.FormValue("anonymous"); v != "" {
		anon, err := strconv.ParseBool(v)
		if err != nil {
			return req, apperr.InvalidArg("invalid anonymous flag")
		}
		req.Anonymous = anon
	}
	return req, nil
}

func (a *api) handlerListLetters(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	q := r.URL.Query()
	f := letter.ListFilter{Box: letter.Box(q.Get("box"))}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		response.RespondWithAppError(w, apperr.InvalidArg("invalid limit"))
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		response.RespondWithAppError(w, apperr.InvalidArg("invalid offset"))
		return
	}

	letters, err := a.svc.ListLetters(r.Context(), userID, f)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"letters": letters})
}

func (a *api) handlerGetLetter(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	view, err := a.svc.ReadLetter(r.Context(), letterID, userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, view)
}

func (a *api) handlerOpenLetter(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	res, err := a.svc.OpenLetter(r.Context(), letterID, userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, res)
}

func (a *api) handlerDeleteLetter(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteLetter(r.Context(), letterID, userID); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handlerPreviewInvite(w http.ResponseWriter, r *http.Request) {
	preview, err := a.svc.PreviewInvite(r.Context(), r.PathValue("token"))
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, preview)
}

func (a *api) handlerClaimInvite(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	res, err := a.svc.ClaimInvite(r.Context(), r.PathValue("token"), userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, res)
}

type replyRequest struct {
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

func (a *api) handlerAddReply(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	var req replyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	id, err := a.svc.AddReply(r.Context(), letter.AddReplyCommand{
		LetterID: letterID,
		Actor:    userID,
		Text:     req.Text,
		Emoji:    req.Emoji,
	})
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
}

func (a *api) handlerGetReply(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	reply, err := a.svc.GetReply(r.Context(), letterID, userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, reply)
}

func (a *api) handlerReplyViewed(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	reply, err := a.svc.MarkReplyViewed(r.Context(), letterID, userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, reply)
}

type reflectionRequest struct {
	Answer letter.ReflectionAnswer `json:"answer"`
}

func (a *api) handlerSubmitReflection(w http.ResponseWriter, r *http.Request) {
	userID, letterID, ok := a.letterRequest(w, r)
	if !ok {
		return
	}
	var req reflectionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	if err := a.svc.SubmitReflection(r.Context(), letterID, userID, req.Answer); err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handlerListConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	conns, err := a.svc.ListConnections(r.Context(), userID)
	if err != nil {
		response.RespondWithAppError(w, err)
		return
	}
	response.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
}

func handlerHealthz(w http.ResponseWriter, r *http.Request) {
	response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// letterRequest extracts the caller and the {id} path value, answering the
// request itself when either is missing.
func (a *api) letterRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		response.RespondWithError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return uuid.Nil, uuid.Nil, false
	}
	letterID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondWithAppError(w, apperr.ErrNotFound)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, letterID, true
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidArg("invalid request body")
	}
	return nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

