// Package dailynote locates, parses and creates daily notes in the vault.
package dailynote

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/storage"
)

const keyLayout = "2006-01-02"

// Index is the subset of the note index the store reads and writes through.
type Index interface {
	ListUnder(dir string) ([]models.Document, error)
	GetDocument(path string) (models.Document, error)
	IndexNote(path string, data []byte, modTime time.Time) error
}

// Config describes where daily notes live and how they are named.
type Config struct {
	// Format is a moment-style date format; "/" separates sub-folders.
	Format string
	// Folder is the vault-relative folder holding daily notes.
	Folder string
	// Template is the vault-relative path of the template used on creation.
	Template string
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the time zone daily dates are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithClock sets the time source used by the {{time}} template variable.
func WithClock(c selection.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements selection.DailyNotes over vault storage and the index.
type Store struct {
	files    storage.Provider
	idx      Index
	folder   string
	template string
	layout   *Layout
	name     *Layout
	loc      *time.Location
	clock    selection.Clock
	logger   *slog.Logger
}

var _ selection.DailyNotes = (*Store)(nil)

// New creates a Store. It fails only when cfg.Format cannot be compiled.
func New(files storage.Provider, idx Index, cfg Config, opts ...Option) (*Store, error) {
	layout, err := ParseLayout(cfg.Format)
	if err != nil {
		return nil, err
	}
	s := &Store{
		files:    files,
		idx:      idx,
		folder:   cleanFolder(cfg.Folder),
		template: strings.TrimSpace(cfg.Template),
		layout:   layout,
		name:     layout.Basename(),
		loc:      time.Local,
		clock:    selection.SystemClock{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func cleanFolder(f string) string {
	f = strings.Trim(strings.ReplaceAll(strings.TrimSpace(f), "\\", "/"), "/")
	if f == "" || f == "." {
		return ""
	}
	return path.Clean(f)
}

// Key returns the snapshot key for date.
func Key(date time.Time) string {
	return "day-" + date.Format(keyLayout)
}

// Format returns the configured moment-style format.
func (s *Store) Format() string { return s.layout.String() }

// Folder returns the configured daily-notes folder.
func (s *Store) Folder() string { return s.folder }

// PathFor returns the vault-relative path of the daily note for date.
func (s *Store) PathFor(date time.Time) string {
	return path.Join(s.folder, s.layout.Format(date.In(s.loc))+".md")
}

// DateOf parses the document's basename strictly against the format.
func (s *Store) DateOf(doc models.Document) (time.Time, bool) {
	if path.Ext(doc.Name) != ".md" {
		return time.Time{}, false
	}
	t, err := s.name.Parse(doc.Basename, s.loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListAll returns every daily note under the configured folder keyed by
// day. When two files parse to the same day the first by path wins.
func (s *Store) ListAll() (map[string]models.Document, error) {
	docs, err := s.idx.ListUnder(s.folder)
	if err != nil {
		return nil, fmt.Errorf("dailynote: list: %w", err)
	}
	out := make(map[string]models.Document, len(docs))
	for _, d := range docs {
		date, ok := s.DateOf(d)
		if !ok {
			continue
		}
		k := Key(date)
		if _, dup := out[k]; dup {
			s.logger.Debug("dailynote: duplicate day", slog.String("key", k), slog.String("path", d.Path))
			continue
		}
		out[k] = d
	}
	return out, nil
}

// Lookup finds the note for date in a snapshot returned by ListAll.
func (s *Store) Lookup(date time.Time, snapshot map[string]models.Document) (models.Document, bool) {
	d, ok := snapshot[Key(date)]
	return d, ok
}

// Create writes the daily note for date, rendered from the template when
// one is configured, and indexes it. It returns apperr.ErrAlreadyExists
// if the file is already present.
func (s *Store) Create(ctx context.Context, date time.Time) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return models.Document{}, err
	}
	date = date.In(s.loc)
	p := s.PathFor(date)
	if s.files.Exists(p) {
		return models.Document{}, fmt.Errorf("dailynote: create %s: %w", p, apperr.ErrAlreadyExists)
	}

	content, err := s.render(date, strings.TrimSuffix(path.Base(p), ".md"))
	if err != nil {
		return models.Document{}, err
	}
	if err := s.files.Write(p, content); err != nil {
		return models.Document{}, fmt.Errorf("dailynote: create: %w", err)
	}

	meta, err := s.files.Stat(p)
	if err != nil {
		return models.Document{}, fmt.Errorf("dailynote: create: %w", err)
	}
	if err := s.idx.IndexNote(p, content, meta.UpdatedAt); err != nil {
		return models.Document{}, fmt.Errorf("dailynote: index: %w", err)
	}
	doc, err := s.idx.GetDocument(p)
	if err != nil {
		return models.Document{}, fmt.Errorf("dailynote: create: %w", err)
	}
	s.logger.Info("dailynote: created", slog.String("path", p))
	return doc, nil
}

func (s *Store) render(date time.Time, title string) ([]byte, error) {
	if s.template == "" {
		return nil, nil
	}
	tp := s.template
	if path.Ext(tp) == "" {
		tp += ".md"
	}
	raw, err := s.files.Read(tp)
	if err != nil {
		return nil, fmt.Errorf("dailynote: read template: %w", err)
	}
	return []byte(renderTemplate(string(raw), templateVars{
		date:   date,
		now:    s.clock.Now().In(s.loc),
		title:  title,
		layout: s.layout,
	})), nil
}
