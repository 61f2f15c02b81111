package selection

import (
	"context"
	"time"

	"github.com/starford/vaultlens/internal/models"
)

// DailyNotes is the host's view of daily notes.
type DailyNotes interface {
	// ListAll returns every daily note keyed by its date key.
	ListAll() (map[string]models.Document, error)
	// Lookup finds the note for date's calendar day in a ListAll snapshot.
	Lookup(date time.Time, snapshot map[string]models.Document) (models.Document, bool)
	// Create writes the daily note for date's calendar day.
	Create(ctx context.Context, date time.Time) (models.Document, error)
	// DateOf parses the document's basename against the daily-note format.
	DateOf(doc models.Document) (time.Time, bool)
	// Format returns the active daily-note date format.
	Format() string
}

// Documents lists every document in the vault.
type Documents interface {
	ListAll() ([]models.Document, error)
}

// TagIndex resolves the "#"-prefixed tag set of a document.
type TagIndex interface {
	TagsOf(doc models.Document) ([]string, bool)
}

// Clock is the source of "now" for window evaluation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// Collaborators bundles the host integrations consumed by the engine.
// Any of Daily, Documents or Tags may be nil; operations that need a
// missing collaborator are skipped.
type Collaborators struct {
	Daily     DailyNotes
	Documents Documents
	Tags      TagIndex
	Clock     Clock
}
