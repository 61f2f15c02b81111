// Package viewservice serialises access to the selection engine and keeps it
// in step with vault changes, whether they come from the watcher or from
// API writes.
package viewservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/vaultlens/internal/apperr"
	"github.com/starford/vaultlens/internal/checksum"
	"github.com/starford/vaultlens/internal/index"
	"github.com/starford/vaultlens/internal/models"
	"github.com/starford/vaultlens/internal/parser"
	"github.com/starford/vaultlens/internal/selection"
	"github.com/starford/vaultlens/internal/storage"
)

// Notifier receives change notifications. The SSE broker implements it.
type Notifier interface {
	PublishNoteEvent(kind, path string)
	PublishSelectionEvent(data interface{})
}

// Snapshot is the current selection as seen by clients.
type Snapshot struct {
	Options           selection.Options `json:"options"`
	Files             []models.Document `json:"files"`
	Total             int               `json:"total"`
	HasCurrentDayNote bool              `json:"has_current_day_note"`
	DailyFormat       string            `json:"daily_format,omitempty"`
}

// Summary is the payload of selection.updated events.
type Summary struct {
	Reason            string `json:"reason"`
	Count             int    `json:"count"`
	HasCurrentDayNote bool   `json:"has_current_day_note"`
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Document
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Links       []string       `json:"links"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// DailyPaths resolves where the daily note for a date lives. The daily
// note store implements it.
type DailyPaths interface {
	PathFor(date time.Time) string
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithDailyNotes lets CreateDailyNote detect a daily note that is on disk
// but not indexed yet.
func WithDailyNotes(d DailyPaths) Option {
	return func(s *Service) { s.daily = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used by the day-change check. It should be the
// clock the engine was built with.
func WithClock(c selection.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// Service owns the engine and coordinates storage and index operations.
type Service struct {
	mu      sync.Mutex
	engine  *selection.Engine
	store   storage.Provider
	db      index.NoteIndex
	daily   DailyPaths
	notify  Notifier
	clock   selection.Clock
	logger  *slog.Logger
	lastDay string
}

// NewService creates a view service around an engine.
func NewService(engine *selection.Engine, store storage.Provider, db index.NoteIndex, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		db:     db,
		clock:  selection.SystemClock{},
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.lastDay = s.dayKey()
	return s
}

func (s *Service) dayKey() string {
	return s.clock.Now().Format("2006-01-02")
}

// Selection returns the filtered files with the active options.
func (s *Service) Selection(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.engine.FilteredFiles())
}

// AllFiles returns every file in scope regardless of the time window.
func (s *Service) AllFiles(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(s.engine.AllFiles())
}

func (s *Service) snapshot(files []models.Document) Snapshot {
	if files == nil {
		files = []models.Document{}
	}
	return Snapshot{
		Options:           s.engine.Options(),
		Files:             files,
		Total:             len(files),
		HasCurrentDayNote: s.engine.HasCurrentDayNote(),
		DailyFormat:       s.engine.DailyFormat(),
	}
}

// UpdateOptions validates the merged options before applying them. Invalid
// options leave the engine untouched and return apperr.ErrInvalidOptions.
func (s *Service) UpdateOptions(_ context.Context, patch selection.OptionsPatch) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := patch.Apply(s.engine.Options())
	if err := next.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", apperr.ErrInvalidOptions, err)
	}
	s.engine.UpdateOptions(patch)
	s.publishLocked("options")
	return s.snapshot(s.engine.FilteredFiles()), nil
}

// Refresh re-checks today's daily note and recomputes the filtered files.
func (s *Service) Refresh(_ context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.FetchFiles()
	s.engine.CheckDailyNote()
	s.engine.FilterFilesByRange()
	s.publishLocked("refresh")
	return s.snapshot(s.engine.FilteredFiles())
}

// CheckDailyNote reports whether today's daily note exists.
func (s *Service) CheckDailyNote(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CheckDailyNote()
}

// CreateDailyNote creates today's daily note. It returns
// apperr.ErrNotDailyMode outside daily mode and apperr.ErrAlreadyExists
// when the note is already present.
func (s *Service) CreateDailyNote(ctx context.Context) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine.Options().Mode != selection.ModeDaily {
		return models.Document{}, apperr.ErrNotDailyMode
	}
	if s.engine.CheckDailyNote() {
		return models.Document{}, apperr.ErrAlreadyExists
	}
	if s.daily != nil && s.store.Exists(s.daily.PathFor(s.clock.Now())) {
		// written outside the service and not picked up by the watcher yet
		return models.Document{}, apperr.ErrAlreadyExists
	}
	doc, ok := s.engine.CreateNewDailyNote(ctx)
	if !ok {
		return models.Document{}, errors.New("viewservice: create daily note failed")
	}
	if s.notify != nil {
		s.notify.PublishNoteEvent("created", doc.Path)
	}
	s.publishLocked("daily_note")
	return doc, nil
}

// HandleEvent applies a watcher event for the vault-relative path. It
// matches index.EventCallback.
func (s *Service) HandleEvent(kind, p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleEventLocked(kind, p)
}

func (s *Service) handleEventLocked(kind, p string) {
	switch kind {
	case "created", "updated":
		doc, err := s.db.GetDocument(p)
		if err != nil {
			s.logger.Warn("viewservice: lookup failed", slog.String("path", p), slog.String("error", err.Error()))
			return
		}
		if kind == "updated" {
			// tags or timestamps may have changed; re-evaluate from scratch
			s.engine.FileDelete(doc)
		}
		s.engine.FileCreate(doc)
	case "deleted":
		s.engine.FileDelete(models.NewDocument(p, time.Time{}, time.Time{}))
	default:
		return
	}

	if s.notify != nil {
		s.notify.PublishNoteEvent(kind, p)
	}
	s.publishLocked(kind)
}

// RunDayCheck periodically checks for today's daily note until ctx is
// cancelled. When the calendar day rolls over the window is recomputed.
func (s *Service) RunDayCheck(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.checkDay()
		}
	}
}

func (s *Service) checkDay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := s.engine.HasCurrentDayNote()
	has := s.engine.CheckDailyNote()

	if day := s.dayKey(); day != s.lastDay {
		s.lastDay = day
		s.engine.FilterFilesByRange()
		s.logger.Info("viewservice: day changed", slog.String("day", day))
		s.publishLocked("day_changed")
		return
	}
	if had != has {
		s.publishLocked("daily_note")
	}
}

func (s *Service) publishLocked(reason string) {
	if s.notify == nil {
		return
	}
	s.notify.PublishSelectionEvent(Summary{
		Reason:            reason,
		Count:             len(s.engine.FilteredFiles()),
		HasCurrentDayNote: s.engine.HasCurrentDayNote(),
	})
}

// GetNote reads a note from storage and parses it.
func (s *Service) GetNote(_ context.Context, p string) (*NoteDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildNoteDetail(p, data)
}

// CreateNote writes a new note, indexes it and feeds it to the engine.
func (s *Service) CreateNote(_ context.Context, p string, content []byte) (*NoteDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = notePath(p)
	if s.store.Exists(p) {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(p, content); err != nil {
		return nil, err
	}
	s.handleEventLocked("created", p)
	return s.buildNoteDetail(p, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, p string, content []byte, ifMatch string) (*NoteDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(p, content); err != nil {
		return nil, err
	}
	s.handleEventLocked("updated", p)
	return s.buildNoteDetail(p, content)
}

// DeleteNote removes a note from storage, index and selection.
func (s *Service) DeleteNote(_ context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(p) {
		return apperr.ErrNotFound
	}
	if err := s.store.Delete(p); err != nil {
		return err
	}
	if err := s.db.DeleteNote(p); err != nil {
		return err
	}
	s.handleEventLocked("deleted", p)
	return nil
}

func (s *Service) indexFile(p string, data []byte) error {
	meta, err := s.store.Stat(p)
	if err != nil {
		return err
	}
	return s.db.IndexNote(p, data, meta.UpdatedAt)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(p string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	doc, err := s.db.GetDocument(p)
	if errors.Is(err, apperr.ErrNotFound) {
		doc = models.NewDocument(p, time.Time{}, time.Time{})
		doc.Title = res.Title
	} else if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Document:    doc,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Links:       nonNilSlice(res.Links),
		Frontmatter: res.Frontmatter,
	}, nil
}

// notePath normalises separators and appends ".md" when missing.
func notePath(p string) string {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if path.Ext(p) != ".md" {
		p += ".md"
	}
	return p
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
