package noteclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notehub/internal/models"
)

// rawNote is a note exactly as the service encodes it.
type rawNote struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Tag       models.NoteTag `json:"tag"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

// rawListResponse keeps pointers so a missing field is told apart from an
// empty one.
type rawListResponse struct {
	Notes      *[]rawNote `json:"notes"`
	TotalPages *int       `json:"totalPages"`
}

func (r rawListResponse) normalize(status, page, perPage int) (*models.PageResult, error) {
	if r.Notes == nil {
		return nil, malformed(status, "missing notes", errors.New("notes field absent or null"))
	}
	if r.TotalPages == nil {
		return nil, malformed(status, "missing totalPages", errors.New("totalPages field absent or null"))
	}
	if *r.TotalPages < 0 {
		return nil, malformed(status, "negative totalPages", fmt.Errorf("totalPages = %d", *r.TotalPages))
	}
	notes := *r.Notes
	items := make([]models.Note, 0, len(notes))
	for _, rn := range notes {
		n, err := rn.normalize()
		if err != nil {
			return nil, malformed(status, fmt.Sprintf("note %d", rn.ID), err)
		}
		items = append(items, n)
	}
	return &models.PageResult{
		Page:       page,
		PerPage:    perPage,
		Items:      items,
		TotalPages: *r.TotalPages,
	}, nil
}

func (r rawNote) normalize() (models.Note, error) {
	if r.ID < 1 {
		return models.Note{}, fmt.Errorf("id = %d", r.ID)
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return models.Note{}, fmt.Errorf("createdAt: %w", err)
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return models.Note{}, fmt.Errorf("updatedAt: %w", err)
	}
	return models.Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Tag:       r.Tag,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// parseTimestamp accepts RFC 3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, s)
}

func decodeNote(status int, body []byte) (*models.Note, error) {
	var rn rawNote
	if err := json.Unmarshal(body, &rn); err != nil {
		return nil, malformed(status, "decode note", err)
	}
	n, err := rn.normalize()
	if err != nil {
		return nil, malformed(status, "note fields", err)
	}
	return &n, nil
}
