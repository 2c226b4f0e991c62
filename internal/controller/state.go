package controller

import "github.com/starford/notehub/internal/models"

// Messages surfaced to the presentation layer.
const (
	MsgLoadFailed   = "Error loading notes. Please try again later."
	MsgNoteGone     = "This note no longer exists."
	MsgDeleteFailed = "Failed to delete note. Please try again."
	MsgCreateFailed = "Failed to create note. Please try again."
)

// State is the composed page state plus the projected list view.
type State struct {
	SearchInput     string       `json:"searchInput"`
	CommittedSearch string       `json:"search"`
	Page            int          `json:"page"`
	ModalOpen       bool         `json:"modalOpen"`
	Draft           models.Draft `json:"draft"`
	FormError       string       `json:"formError,omitempty"`
	ActionError     string       `json:"actionError,omitempty"`

	Notes      []models.Note `json:"notes"`
	TotalPages int           `json:"totalPages"`
	Loading    bool          `json:"loading"`
	Error      string        `json:"error,omitempty"`
}

func initialState() State {
	return State{
		Page:  1,
		Draft: models.EmptyDraft(),
		Notes: []models.Note{},
	}
}

// Listener is called with a copy of the state after every accepted change.
type Listener func(State)
