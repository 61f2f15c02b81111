// Package selection maintains an incrementally-updated, ordered view of the
// vault documents that belong to a daily, folder or tag selection.
//
// The Engine owns two sequences: allFiles, every document satisfying the
// membership predicate, and filteredFiles, the subsequence inside the active
// time window. Both are kept consistent on document create/delete events
// without rescanning the vault.
//
// The Engine is not safe for concurrent use; callers serialise access.
package selection

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/starford/vaultlens/internal/models"
)

// Engine is the selection engine.
type Engine struct {
	opts      Options
	daily     DailyNotes
	docs      Documents
	tags      TagIndex
	clock     Clock
	weekStart time.Weekday
	logger    *slog.Logger

	all           []models.Document
	filtered      []models.Document
	fetched       bool
	hasCurrentDay bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWeekStart sets the first day of the week used by week windows.
func WithWeekStart(d time.Weekday) EngineOption {
	return func(e *Engine) { e.weekStart = d }
}

// New creates an engine and fetches immediately.
func New(opts Options, c Collaborators, options ...EngineOption) *Engine {
	e := &Engine{
		opts:      opts,
		daily:     c.Daily,
		docs:      c.Documents,
		tags:      c.Tags,
		clock:     c.Clock,
		weekStart: time.Sunday,
		logger:    slog.Default(),
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	for _, o := range options {
		o(e)
	}
	e.FetchFiles()
	return e
}

// Options returns a copy of the active options.
func (e *Engine) Options() Options {
	o := e.opts
	if o.CustomRange != nil {
		cr := *o.CustomRange
		o.CustomRange = &cr
	}
	return o
}

// AllFiles returns a copy of allFiles.
func (e *Engine) AllFiles() []models.Document { return slices.Clone(e.all) }

// FilteredFiles returns a copy of filteredFiles.
func (e *Engine) FilteredFiles() []models.Document { return slices.Clone(e.filtered) }

// HasCurrentDayNote reports whether today's daily note is in allFiles.
func (e *Engine) HasCurrentDayNote() bool { return e.hasCurrentDay }

// DailyFormat returns the daily-note date format, or "" without a daily collaborator.
func (e *Engine) DailyFormat() string {
	if e.daily == nil {
		return ""
	}
	return e.daily.Format()
}

// FetchFiles builds allFiles for the active mode. It is a no-op once fetched.
func (e *Engine) FetchFiles() {
	if e.fetched {
		return
	}
	var ok bool
	switch e.opts.Mode {
	case ModeDaily:
		ok = e.fetchDaily()
	case ModeFolder:
		ok = e.fetchMatching(e.inFolder)
	case ModeTag:
		ok = e.fetchMatching(e.hasTag)
	}
	if !ok {
		return
	}
	e.fetched = true
	e.evaluateCurrentDay()
	e.FilterFilesByRange()
}

func (e *Engine) fetchDaily() bool {
	if e.daily == nil {
		return false
	}
	snapshot, err := e.daily.ListAll()
	if err != nil {
		e.logger.Warn("selection: list daily notes failed", slog.String("error", err.Error()))
		return false
	}
	e.all = e.dailyOrder(snapshot)
	return true
}

// dailyOrder builds the daily list in date-key order (newest first) and
// re-sorts it when the time field asks for something else.
func (e *Engine) dailyOrder(snapshot map[string]models.Document) []models.Document {
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)

	docs := make([]models.Document, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, snapshot[k])
	}
	base, _ := e.opts.TimeField.Resolve()
	if base == FieldName || !usesDailyKeyOrder(e.opts.TimeField) {
		sortByField(docs, e.opts.TimeField)
	}
	return docs
}

func (e *Engine) fetchMatching(match func(models.Document) bool) bool {
	if e.docs == nil || e.opts.Target == "" {
		return false
	}
	if e.opts.Mode == ModeTag && e.tags == nil {
		return false
	}
	docs, err := e.docs.ListAll()
	if err != nil {
		e.logger.Warn("selection: list documents failed", slog.String("error", err.Error()))
		return false
	}
	all := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if match(d) {
			all = upsert(all, d)
		}
	}
	sortByField(all, e.opts.TimeField)
	e.all = all
	return true
}

func (e *Engine) inFolder(doc models.Document) bool {
	target := strings.TrimSuffix(e.opts.Target, "/")
	if target == "" {
		return false
	}
	return doc.ParentPath == target || strings.HasPrefix(doc.ParentPath, target+"/")
}

func normalizeTag(tag string) string {
	if strings.HasPrefix(tag, "#") {
		return tag
	}
	return "#" + tag
}

func (e *Engine) hasTag(doc models.Document) bool {
	if e.tags == nil || e.opts.Target == "" {
		return false
	}
	tags, ok := e.tags.TagsOf(doc)
	if !ok {
		return false
	}
	return slices.Contains(tags, normalizeTag(e.opts.Target))
}

// FilterFilesByRange recomputes filteredFiles from allFiles and returns a copy.
func (e *Engine) FilterFilesByRange() []models.Document {
	if e.opts.TimeRange == "" || e.opts.TimeRange == RangeAll {
		e.filtered = slices.Clone(e.all)
		return e.FilteredFiles()
	}

	now := e.clock.Now()
	switch e.opts.Mode {
	case ModeDaily:
		if e.daily == nil {
			return e.FilteredFiles()
		}
		in := windowPredicate(e.opts.TimeRange, e.opts.CustomRange, now, e.weekStart, true)
		filtered := make([]models.Document, 0, len(e.all))
		for _, d := range e.all {
			if date, ok := e.daily.DateOf(d); ok && in(date) {
				filtered = append(filtered, d)
			}
		}
		e.filtered = filtered
	case ModeFolder, ModeTag:
		base, _ := e.opts.TimeField.Resolve()
		in := windowPredicate(e.opts.TimeRange, e.opts.CustomRange, now, e.weekStart, false)
		// filtered keeps the order of allFiles, reverse fields included
		filtered := make([]models.Document, 0, len(e.all))
		for _, d := range e.all {
			if in(timestampOf(d, base)) {
				filtered = append(filtered, d)
			}
		}
		e.filtered = filtered
	}
	return e.FilteredFiles()
}

func (e *Engine) today() time.Time {
	return startOf(periodDay, e.clock.Now(), e.weekStart)
}

func (e *Engine) isToday(date time.Time) bool {
	today := e.today()
	return between(date, today, shift(periodDay, today, 1).Add(-time.Nanosecond))
}

// evaluateCurrentDay sets hasCurrentDay from allFiles without refetching.
func (e *Engine) evaluateCurrentDay() {
	if e.opts.Mode != ModeDaily {
		e.hasCurrentDay = true
		return
	}
	e.hasCurrentDay = slices.ContainsFunc(e.all, func(d models.Document) bool {
		date, ok := e.daily.DateOf(d)
		return ok && e.isToday(date)
	})
}

// CheckDailyNote reports whether today's daily note exists. Outside daily
// mode it always reports true. When today's note appears after having been
// absent, the daily notes are refetched and refiltered.
func (e *Engine) CheckDailyNote() bool {
	if e.opts.Mode != ModeDaily {
		e.hasCurrentDay = true
		return true
	}
	if e.daily == nil {
		return e.hasCurrentDay
	}
	snapshot, err := e.daily.ListAll()
	if err != nil {
		e.logger.Warn("selection: list daily notes failed", slog.String("error", err.Error()))
		return e.hasCurrentDay
	}
	if _, ok := e.daily.Lookup(e.today(), snapshot); !ok {
		e.hasCurrentDay = false
		return false
	}
	if !e.hasCurrentDay {
		e.hasCurrentDay = true
		e.all = e.dailyOrder(snapshot)
		e.fetched = true
		e.FilterFilesByRange()
	}
	return true
}

// CreateNewDailyNote creates today's daily note when in daily mode and it
// does not exist yet. It reports false when nothing was created.
func (e *Engine) CreateNewDailyNote(ctx context.Context) (models.Document, bool) {
	if e.opts.Mode != ModeDaily || e.hasCurrentDay || e.daily == nil {
		return models.Document{}, false
	}
	doc, err := e.daily.Create(ctx, e.clock.Now())
	if err != nil {
		e.logger.Warn("selection: create daily note failed", slog.String("error", err.Error()))
		return models.Document{}, false
	}
	e.all = upsert(e.all, doc)
	e.sortDaily(e.all)
	e.hasCurrentDay = true
	e.FilterFilesByRange()
	return doc, true
}

// UpdateOptions merges patch into the options. A mode or target change
// resets and refetches; a range change refilters. A time field change on
// its own is stored but does not resort.
func (e *Engine) UpdateOptions(patch OptionsPatch) {
	next := patch.Apply(e.opts)
	scopeChanged := next.Mode != e.opts.Mode || next.Target != e.opts.Target
	rangeChanged := next.TimeRange != e.opts.TimeRange || !customRangeEqual(next.CustomRange, e.opts.CustomRange)
	e.opts = next

	switch {
	case scopeChanged:
		e.all = nil
		e.filtered = nil
		e.fetched = false
		e.hasCurrentDay = false
		e.FetchFiles()
	case rangeChanged:
		e.FilterFilesByRange()
	}
}
