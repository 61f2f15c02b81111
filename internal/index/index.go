package index

import (
	"time"

	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/selection"
)

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NoteIndex interface {
	UpsertNote(n NoteRow) error
	IndexNote(path string, data []byte, modTime time.Time) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	GetDocument(path string) (models.Document, error)
	ListAll() ([]models.Document, error)
	TagsOf(doc models.Document) ([]string, bool)
	Close() error
}

// Verify *DB satisfies NoteIndex and the selection collaborators at compile time.
var (
	_ NoteIndex           = (*DB)(nil)
	_ selection.Documents = (*DB)(nil)
	_ selection.TagIndex  = (*DB)(nil)
)
