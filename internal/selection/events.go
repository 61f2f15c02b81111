package selection

import (
	"time"

	"github.com/starford/vaultlens/internal/models"
)

// placement says where a new daily note falls relative to the dates
// spanned by the first and last entries of filteredFiles.
type placement int

const (
	placeRecompute placement = iota // empty window, boundary tie or unreadable boundary
	placeInside                     // strictly between the boundary dates
	placeOlder                      // before the oldest boundary
	placeNewer                      // after the newest boundary
)

func (e *Engine) place(date time.Time) placement {
	if len(e.filtered) == 0 {
		return placeRecompute
	}
	first, ok1 := e.daily.DateOf(e.filtered[0])
	last, ok2 := e.daily.DateOf(e.filtered[len(e.filtered)-1])
	if !ok1 || !ok2 {
		return placeRecompute
	}
	newest, oldest := first, last
	if newest.Before(oldest) {
		newest, oldest = oldest, newest
	}
	switch {
	case date.After(oldest) && date.Before(newest):
		return placeInside
	case date.Before(oldest):
		return placeOlder
	case date.After(newest):
		return placeNewer
	default:
		return placeRecompute
	}
}

// FileCreate applies a document-created event.
func (e *Engine) FileCreate(doc models.Document) {
	switch e.opts.Mode {
	case ModeDaily:
		e.dailyCreate(doc)
	case ModeFolder:
		e.matchingCreate(doc, e.inFolder)
	case ModeTag:
		e.matchingCreate(doc, e.hasTag)
	}
}

// dailyCreate inserts a daily note into allFiles and updates filteredFiles
// by the placement table:
//
//	recompute -> full FilterFilesByRange
//	older     -> full FilterFilesByRange
//	inside    -> insert into filteredFiles, resorted
//	newer     -> insert into filteredFiles when the window admits the date
func (e *Engine) dailyCreate(doc models.Document) {
	if e.daily == nil {
		return
	}
	date, ok := e.daily.DateOf(doc)
	if !ok {
		return
	}
	where := e.place(date)

	e.all = upsert(e.all, doc)
	e.sortDaily(e.all)

	switch where {
	case placeInside:
		e.filtered = upsert(e.filtered, doc)
		e.sortDaily(e.filtered)
	case placeNewer:
		in := windowPredicate(e.opts.TimeRange, e.opts.CustomRange, e.clock.Now(), e.weekStart, true)
		if in(date) {
			e.filtered = upsert(e.filtered, doc)
			e.sortDaily(e.filtered)
		}
	default:
		e.FilterFilesByRange()
	}

	if e.isToday(date) {
		e.hasCurrentDay = true
	}
}

func (e *Engine) matchingCreate(doc models.Document, match func(models.Document) bool) {
	if !match(doc) {
		return
	}
	e.all = upsert(e.all, doc)
	sortByField(e.all, e.opts.TimeField)
	e.FilterFilesByRange()
}

// FileDelete applies a document-deleted event. The document is removed by
// basename from both sequences. In daily mode a dated note also triggers a
// refilter and a current-day check.
func (e *Engine) FileDelete(doc models.Document) {
	e.all = removeByBasename(e.all, doc.Basename)
	e.filtered = removeByBasename(e.filtered, doc.Basename)

	if e.opts.Mode != ModeDaily || e.daily == nil {
		return
	}
	if _, ok := e.daily.DateOf(doc); !ok {
		return
	}
	e.FilterFilesByRange()
	e.CheckDailyNote()
}
