package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notehub/internal/controller"
	"github.com/starford/notehub/internal/models"
)

// ViewResponse is the full page state as the presentation layer renders it
// (aliased from the controller).
type ViewResponse = controller.State

// NoteDTO is a single note in responses (aliased from the domain layer).
type NoteDTO = models.Note

// SearchRequest is the request body for typing into the search box.
type SearchRequest struct {
	Text string `json:"text" example:"milk"`
	// Flush commits the text immediately instead of waiting for the quiet period.
	Flush bool `json:"flush,omitempty" example:"false"`
}

// PageRequest is the request body for selecting a page.
type PageRequest struct {
	Page *int `json:"page" example:"2" validate:"required"`
}

// NewPageRequest returns a request for page n.
func NewPageRequest(n int) PageRequest {
	return PageRequest{Page: &n}
}

// Validate checks that a page was sent. Whether it exists, including zero and
// negative pages, is decided by the controller.
func (r PageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.NotNil),
	)
}

// DraftRequest is the request body for editing the draft and creating a note.
type DraftRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"milk, eggs"`
	Tag     string `json:"tag" example:"Shopping" enums:"Todo,Work,Personal,Meeting,Shopping"`
}

// Draft converts the request into a domain draft. The tag is passed through
// unchecked; the remote service is the authority on tags.
func (r DraftRequest) Draft() models.Draft {
	return models.Draft{Title: r.Title, Content: r.Content, Tag: models.NoteTag(r.Tag)}
}
