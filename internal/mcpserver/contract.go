package mcpserver

import "strings"

// TagsURI identifies the note tag resource.
const TagsURI = "notehub://note-tags"

// NoteTagContract describes the fields NoteHub accepts when creating a note.
// LLM consumers should read it before calling create_note.
var NoteTagContract = `# NoteHub Note Contract

Notes are plain text records held by the NoteHub service.

## Fields

- **title**: short display name. Required.
- **content**: free text. May be empty.
- **tag**: exactly one of ` + strings.Join(tagList(), ", ") + `.

## Rules

1. The service assigns ` + "`id`" + `, ` + "`createdAt`" + ` and ` + "`updatedAt`" + `; never send them.
2. Notes cannot be edited. To change a note, create a new one and delete the old.
3. Listings are newest first, 12 notes per page. Search matches title and content.
4. The service validates every field and its rejection message is returned as is.
5. Deleting a note that no longer exists is reported, not retried.
`

func tagList() []string {
	out := make([]string, 0, 5)
	for _, t := range allTags() {
		out = append(out, "`"+t+"`")
	}
	return out
}
