// Package models defines the domain types for the NoteHub client.
package models

import "time"

// PerPage is the fixed page size used by the client.
const PerPage = 12

// NoteTag is the category a note is filed under.
type NoteTag string

const (
	TagTodo     NoteTag = "Todo"
	TagWork     NoteTag = "Work"
	TagPersonal NoteTag = "Personal"
	TagMeeting  NoteTag = "Meeting"
	TagShopping NoteTag = "Shopping"
)

// AllTags returns every tag the service accepts, in display order.
func AllTags() []NoteTag {
	return []NoteTag{TagTodo, TagWork, TagPersonal, TagMeeting, TagShopping}
}

// Valid reports whether t is one of the known tags.
func (t NoteTag) Valid() bool {
	for _, known := range AllTags() {
		if t == known {
			return true
		}
	}
	return false
}

// Note is a note as held by the client. Timestamps are already normalized.
type Note struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tag       NoteTag   `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft is the body of a create request.
type Draft struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Tag     NoteTag `json:"tag"`
}

// EmptyDraft returns the defaults of a freshly opened create form.
func EmptyDraft() Draft {
	return Draft{Tag: TagTodo}
}

// PageResult is one page of notes plus pagination metadata.
type PageResult struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	Items      []Note `json:"items"`
	TotalPages int    `json:"totalPages"`
}
