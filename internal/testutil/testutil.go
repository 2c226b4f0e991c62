// Package testutil provides a fake NoteHub service for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notehub/internal/models"
)

// Token is the bearer credential the fake service accepts.
const Token = "test-token"

// Request records one call that reached the fake service.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
}

// NoteHub is an in-memory stand-in for the remote notes API.
type NoteHub struct {
	Server *httptest.Server

	mu       sync.Mutex
	notes    map[int64]models.Note
	nextID   int64
	requests []Request
	now      time.Time

	// FailList, when non-zero, makes GET /notes answer with that status.
	FailList atomic.Int32
}

// NewNoteHub starts a fake service that is closed when the test ends.
func NewNoteHub(t *testing.T) *NoteHub {
	t.Helper()
	h := &NoteHub{
		notes:  make(map[int64]models.Note),
		nextID: 1,
		now:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	r := chi.NewRouter()
	r.Use(h.record)
	r.Use(h.auth)
	r.Get("/notes", h.list)
	r.Post("/notes", h.create)
	r.Delete("/notes/{id}", h.remove)

	h.Server = httptest.NewServer(r)
	t.Cleanup(h.Server.Close)
	return h
}

// URL returns the base URL to configure a client with.
func (h *NoteHub) URL() string {
	return h.Server.URL
}

// Seed inserts a note directly, bypassing the API.
func (h *NoteHub) Seed(title, content string, tag models.NoteTag) models.Note {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.insertLocked(models.Draft{Title: title, Content: content, Tag: tag})
}

// Requests returns a copy of every recorded request.
func (h *NoteHub) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Request, len(h.requests))
	copy(out, h.requests)
	return out
}

// CountRequests returns how many requests matched method and path.
func (h *NoteHub) CountRequests(method, path string) int {
	n := 0
	for _, r := range h.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (h *NoteHub) insertLocked(d models.Draft) models.Note {
	h.now = h.now.Add(time.Minute)
	n := models.Note{
		ID:        h.nextID,
		Title:     d.Title,
		Content:   d.Content,
		Tag:       d.Tag,
		CreatedAt: h.now,
		UpdatedAt: h.now,
	}
	h.notes[n.ID] = n
	h.nextID++
	return n
}

func (h *NoteHub) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests = append(h.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
		})
		h.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (h *NoteHub) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *NoteHub) list(w http.ResponseWriter, r *http.Request) {
	if status := int(h.FailList.Load()); status != 0 {
		writeJSON(w, status, map[string]string{"message": "list unavailable"})
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = models.PerPage
	}
	search := strings.ToLower(q.Get("search"))

	h.mu.Lock()
	var matched []models.Note
	for _, n := range h.notes {
		if search == "" || strings.Contains(strings.ToLower(n.Title), search) || strings.Contains(strings.ToLower(n.Content), search) {
			matched = append(matched, n)
		}
	}
	h.mu.Unlock()

	// Newest first.
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	totalPages := (len(matched) + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]wireNote, 0, end-start)
	for _, n := range matched[start:end] {
		out = append(out, toWire(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes":      out,
		"totalPages": totalPages,
	})
}

func (h *NoteHub) create(w http.ResponseWriter, r *http.Request) {
	var d models.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}
	if len(d.Title) < 3 || len(d.Title) > 50 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "title must be 3-50 characters"})
		return
	}
	if !d.Tag.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "tag is invalid"})
		return
	}

	h.mu.Lock()
	n := h.insertLocked(d)
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, toWire(n))
}

func (h *NoteHub) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid id"})
		return
	}
	h.mu.Lock()
	n, ok := h.notes[id]
	delete(h.notes, id)
	h.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Note not found"})
		return
	}
	writeJSON(w, http.StatusOK, toWire(n))
}

type wireNote struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Tag       string `json:"tag"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toWire(n models.Note) wireNote {
	return wireNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tag:       string(n.Tag),
		CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: n.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
