package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/checksum"
	"github.com/starford/notehub/internal/controller"
	"github.com/starford/notehub/internal/models"
)

// Page is the page-state controller the handlers drive.
type Page interface {
	State() controller.State
	TypeSearch(text string)
	FlushSearch()
	SelectPage(n int) bool
	OpenModal() bool
	CloseModal() bool
	EditDraft(d models.Draft) bool
	SubmitCreate(ctx context.Context, d models.Draft) (*models.Note, error)
	Delete(ctx context.Context, id int64) (*models.Note, error)
	Refresh()
}

// Notifier announces note mutations to event stream clients.
type Notifier interface {
	PublishNoteEvent(kind string, id int64)
}

type nopNotifier struct{}

func (nopNotifier) PublishNoteEvent(string, int64) {}

// Handler holds API route handlers.
type Handler struct {
	page   Page
	notify Notifier
}

// NewHandler creates a new Handler. A nil notifier disables note events.
func NewHandler(page Page, notify Notifier) *Handler {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Handler{page: page, notify: notify}
}

// View handles GET /api/view.
//
//	@Summary		Current page state
//	@Tags			view
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"ETag of a previously fetched view"
//	@Success		200	{object}	ViewResponse
//	@Success		304	"View unchanged"
//	@Security		BearerAuth
//	@Router			/view [get]
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	body, etag, err := checksum.JSON(h.page.State())
	if err != nil {
		slog.Error("encode view failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// Search handles POST /api/search.
//
//	@Summary		Type into the search box
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SearchRequest	true	"Search input"
//	@Success		202		{object}	ViewResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [post]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.page.TypeSearch(req.Text)
	if req.Flush {
		h.page.FlushSearch()
	}
	writeJSON(w, http.StatusAccepted, h.page.State())
}

// SelectPage handles POST /api/page.
//
//	@Summary		Select a result page
//	@Tags			view
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PageRequest	true	"Page to show"
//	@Success		200		{object}	ViewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/page [post]
func (h *Handler) SelectPage(w http.ResponseWriter, r *http.Request) {
	var req PageRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !h.page.SelectPage(*req.Page) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("page out of range"))
		return
	}
	writeJSON(w, http.StatusOK, h.page.State())
}

// OpenModal handles POST /api/modal/open.
//
//	@Summary		Open the create form
//	@Tags			modal
//	@Produce		json
//	@Success		200	{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/modal/open [post]
func (h *Handler) OpenModal(w http.ResponseWriter, r *http.Request) {
	h.page.OpenModal()
	writeJSON(w, http.StatusOK, h.page.State())
}

// CloseModal handles POST /api/modal/close.
//
//	@Summary		Close the create form and discard the draft
//	@Tags			modal
//	@Produce		json
//	@Success		200	{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/modal/close [post]
func (h *Handler) CloseModal(w http.ResponseWriter, r *http.Request) {
	h.page.CloseModal()
	writeJSON(w, http.StatusOK, h.page.State())
}

// EditDraft handles PUT /api/modal/draft.
//
//	@Summary		Replace the unsaved draft
//	@Tags			modal
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DraftRequest	true	"Draft fields"
//	@Success		200		{object}	ViewResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/modal/draft [put]
func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if !h.page.EditDraft(req.Draft()) {
		writeJSON(w, http.StatusConflict, errorBody("create form is not open"))
		return
	}
	writeJSON(w, http.StatusOK, h.page.State())
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DraftRequest	true	"Note to create"
//	@Success		201		{object}	NoteDTO
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.page.SubmitCreate(r.Context(), req.Draft())
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(ve.Message))
		} else {
			slog.Error("create note failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody(controller.MsgCreateFailed))
		}
		return
	}
	h.notify.PublishNoteEvent("created", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	NoteDTO
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	note, err := h.page.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody(controller.MsgNoteGone))
		} else {
			slog.Error("delete note failed", slog.Int64("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody(controller.MsgDeleteFailed))
		}
		return
	}
	h.notify.PublishNoteEvent("deleted", note.ID)
	writeJSON(w, http.StatusOK, note)
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Fetch the current page again
//	@Tags			view
//	@Produce		json
//	@Success		202	{object}	ViewResponse
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.page.Refresh()
	writeJSON(w, http.StatusAccepted, h.page.State())
}
