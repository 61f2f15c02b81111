package selection

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/vaultlens/internal/models"
)

// timestampOf returns the document time used for base. The name field has
// no timestamp of its own and falls back to the modification time.
func timestampOf(doc models.Document, base TimeField) time.Time {
	if base == FieldCTime {
		return doc.CTime
	}
	return doc.MTime
}

// ascending orders a before b by base, then by path so the order is total.
func ascending(base TimeField) func(a, b models.Document) int {
	return func(a, b models.Document) int {
		var c int
		if base == FieldName {
			c = strings.Compare(a.Name, b.Name)
		} else {
			c = timestampOf(a, base).Compare(timestampOf(b, base))
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	}
}

// comparator implements the sort contract: name ascending, time fields
// newest first, each flipped by the Reverse suffix.
func comparator(field TimeField) func(a, b models.Document) int {
	base, reverse := field.Resolve()
	asc := ascending(base)
	descending := base != FieldName
	if descending != reverse {
		return func(a, b models.Document) int { return asc(b, a) }
	}
	return asc
}

func sortByField(docs []models.Document, field TimeField) {
	slices.SortStableFunc(docs, comparator(field))
}

// usesDailyKeyOrder reports whether daily notes are ordered by their date
// key (newest first) instead of the general field rule.
func usesDailyKeyOrder(field TimeField) bool {
	return field == FieldCTime || field == FieldMTime
}

// sortDaily orders daily notes: name fields by name, plain ctime/mtime by
// note date newest first, everything else by the general field rule.
func (e *Engine) sortDaily(docs []models.Document) {
	base, _ := e.opts.TimeField.Resolve()
	if base == FieldName || !usesDailyKeyOrder(e.opts.TimeField) || e.daily == nil {
		sortByField(docs, e.opts.TimeField)
		return
	}
	dates := make(map[string]time.Time, len(docs))
	for _, d := range docs {
		if t, ok := e.daily.DateOf(d); ok {
			dates[d.Path] = t
		}
	}
	slices.SortStableFunc(docs, func(a, b models.Document) int {
		if c := dates[b.Path].Compare(dates[a.Path]); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
}

func indexByBasename(docs []models.Document, basename string) int {
	return slices.IndexFunc(docs, func(d models.Document) bool { return d.Basename == basename })
}

func removeByBasename(docs []models.Document, basename string) []models.Document {
	return slices.DeleteFunc(docs, func(d models.Document) bool { return d.Basename == basename })
}

// upsert replaces any document sharing doc's basename, else appends.
func upsert(docs []models.Document, doc models.Document) []models.Document {
	if i := indexByBasename(docs, doc.Basename); i >= 0 {
		docs[i] = doc
		return docs
	}
	return append(docs, doc)
}
