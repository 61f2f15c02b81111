package api

import (
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/viewservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"Projects/alpha.md" validate:"required"`
	Content string `json:"content" example:"# Alpha\n#work" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// UpdateOptionsRequest is a partial update of the selection options; omitted
// fields keep their current value.
type UpdateOptionsRequest = selection.OptionsPatch

// SelectionResponse is the current selection (aliased from the domain layer).
type SelectionResponse = viewservice.Snapshot

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = viewservice.NoteDetail

// DailyNoteStatus reports whether today's daily note exists.
type DailyNoteStatus struct {
	Exists bool `json:"exists" example:"true"`
}
