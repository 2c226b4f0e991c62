// Package controller owns the page state (search, pagination, create modal)
// and the rules for moving between states.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/debounce"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/querycache"
)

// Cache is the subset of the query cache the controller drives.
type Cache interface {
	Get(key querycache.Key) querycache.Snapshot
	Subscribe(fn querycache.Listener) func()
	Invalidate()
}

// NoteService performs the mutations the page can trigger.
type NoteService interface {
	Create(ctx context.Context, d models.Draft) (*models.Note, error)
	Remove(ctx context.Context, id int64) (*models.Note, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the search quiet period.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.wait = d
	}
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller is an explicit state container: transitions mutate State under a
// lock and listeners are notified in the order changes were applied.
type Controller struct {
	cache  Cache
	notes  NoteService
	logger *slog.Logger
	wait   time.Duration
	search *debounce.Debouncer

	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
	unsub     func()

	// pagesFor is the search TotalPages was counted for; pagesKnown is false
	// until the first page of any search has loaded.
	pagesFor   string
	pagesKnown bool

	notify sync.Mutex
}

// New creates a Controller. Call Start to issue the first fetch.
func New(cache Cache, notes NoteService, opts ...Option) *Controller {
	c := &Controller{
		cache:     cache,
		notes:     notes,
		logger:    slog.Default(),
		wait:      debounce.DefaultWait,
		state:     initialState(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.search = debounce.New(c.wait, c.DebouncedCommit)
	return c
}

// Start subscribes to cache results and requests the first page.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.unsub == nil {
		c.unsub = c.cache.Subscribe(c.onCacheResult)
	}
	c.requestLocked()
	c.mu.Unlock()
	c.publish()
}

// Close stops the debouncer and detaches from the cache.
func (c *Controller) Close() {
	c.search.Stop()
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// TypeSearch records raw input and schedules a debounced commit.
func (c *Controller) TypeSearch(text string) {
	c.mu.Lock()
	c.state.SearchInput = text
	c.mu.Unlock()

	c.publish()
	c.search.Push(text)
}

// FlushSearch commits pending search input immediately.
func (c *Controller) FlushSearch() {
	c.search.Flush()
}

// DebouncedCommit makes text the active search and returns to the first page
// before the new key is requested.
func (c *Controller) DebouncedCommit(text string) {
	c.mu.Lock()
	c.state.CommittedSearch = text
	c.state.Page = 1
	c.requestLocked()
	c.mu.Unlock()

	c.logger.Debug("controller: search committed", slog.String("search", text))
	c.publish()
}

// SelectPage moves to page n. Pages outside 1..TotalPages are rejected and
// never reach the transport. While a new search is loading its page count is
// unknown, so every page is rejected.
func (c *Controller) SelectPage(n int) bool {
	c.mu.Lock()
	if !c.pagesKnown || c.pagesFor != c.state.CommittedSearch || n < 1 || n > c.state.TotalPages {
		c.mu.Unlock()
		c.logger.Debug("controller: page rejected", slog.Int("page", n))
		return false
	}
	if n == c.state.Page {
		c.mu.Unlock()
		return true
	}
	c.state.Page = n
	c.requestLocked()
	c.mu.Unlock()

	c.publish()
	return true
}

// OpenModal opens the create form with an empty draft.
func (c *Controller) OpenModal() bool {
	c.mu.Lock()
	if c.state.ModalOpen {
		c.mu.Unlock()
		return false
	}
	c.state.ModalOpen = true
	c.state.Draft = models.EmptyDraft()
	c.state.FormError = ""
	c.mu.Unlock()

	c.publish()
	return true
}

// CloseModal closes the create form and discards the draft.
func (c *Controller) CloseModal() bool {
	c.mu.Lock()
	if !c.closeModalLocked() {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	c.publish()
	return true
}

// EditDraft replaces the unsaved draft. Only valid while the form is open.
func (c *Controller) EditDraft(d models.Draft) bool {
	c.mu.Lock()
	if !c.state.ModalOpen {
		c.mu.Unlock()
		return false
	}
	c.state.Draft = d
	c.mu.Unlock()

	c.publish()
	return true
}

// CreateSucceeded closes the form. Page and search are left alone; the new
// note shows up through cache invalidation.
func (c *Controller) CreateSucceeded() {
	c.mu.Lock()
	c.closeModalLocked()
	c.state.ActionError = ""
	c.mu.Unlock()

	c.publish()
}

// SubmitCreate sends d to the service. Rejections by the service are kept on
// the form so the user can correct them.
func (c *Controller) SubmitCreate(ctx context.Context, d models.Draft) (*models.Note, error) {
	note, err := c.notes.Create(ctx, d)
	if err != nil {
		c.mu.Lock()
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			c.state.FormError = ve.Message
			if c.state.ModalOpen {
				c.state.Draft = d
			}
		} else {
			c.state.ActionError = MsgCreateFailed
		}
		c.mu.Unlock()

		c.logger.Warn("controller: create failed", slog.String("error", err.Error()))
		c.publish()
		return nil, err
	}

	c.cache.Invalidate()
	c.CreateSucceeded()
	c.Refresh()
	return note, nil
}

// Delete removes a note. A note that is already gone is a soft failure.
func (c *Controller) Delete(ctx context.Context, id int64) (*models.Note, error) {
	note, err := c.notes.Remove(ctx, id)

	c.mu.Lock()
	switch {
	case err == nil:
		c.state.ActionError = ""
	case errors.Is(err, apperr.ErrNotFound):
		c.state.ActionError = MsgNoteGone
	default:
		c.state.ActionError = MsgDeleteFailed
	}
	c.mu.Unlock()

	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		c.logger.Warn("controller: delete failed", slog.Int64("id", id), slog.String("error", err.Error()))
		c.publish()
		return nil, err
	}

	c.cache.Invalidate()
	c.Refresh()
	return note, err
}

// Refresh requests the current key again.
func (c *Controller) Refresh() {
	c.mu.Lock()
	c.requestLocked()
	c.mu.Unlock()

	c.publish()
}

func (c *Controller) key() querycache.Key {
	return querycache.Key{Page: c.state.Page, Search: c.state.CommittedSearch}
}

// requestLocked asks the cache for the current key and folds in whatever it
// already holds.
func (c *Controller) requestLocked() {
	c.applyLocked(c.cache.Get(c.key()))
}

// onCacheResult applies results for the current key only; anything else was
// superseded by a newer page or search.
func (c *Controller) onCacheResult(key querycache.Key, snap querycache.Snapshot) {
	c.mu.Lock()
	if key != c.key() {
		c.mu.Unlock()
		c.logger.Debug("controller: ignored superseded result", slog.String("key", key.String()))
		return
	}
	c.applyLocked(snap)
	c.mu.Unlock()

	c.publish()
}

func (c *Controller) applyLocked(snap querycache.Snapshot) {
	switch snap.Status {
	case querycache.StatusReady:
		c.state.Notes = snap.Data.Items
		c.state.TotalPages = snap.Data.TotalPages
		c.pagesFor = c.state.CommittedSearch
		c.pagesKnown = true
		c.state.Loading = false
		c.state.Error = ""
		if snap.Err != nil {
			c.state.Error = MsgLoadFailed
		}
	case querycache.StatusError:
		c.state.Notes = []models.Note{}
		c.state.Loading = false
		c.state.Error = MsgLoadFailed
	default:
		// Previous notes stay as placeholder until the key has data.
		c.state.Loading = true
		c.state.Error = ""
	}
}

func (c *Controller) closeModalLocked() bool {
	if !c.state.ModalOpen {
		return false
	}
	c.state.ModalOpen = false
	c.state.Draft = models.EmptyDraft()
	c.state.FormError = ""
	return true
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	if st.Notes == nil {
		st.Notes = []models.Note{}
	}
	return st
}

// publish delivers the current state. Calls are serialized and each reads the
// state after its own change, so the last delivery is always the latest state.
// Listeners must not call transitions synchronously.
func (c *Controller) publish() {
	c.notify.Lock()
	defer c.notify.Unlock()

	c.mu.Lock()
	st := c.snapshotLocked()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}
