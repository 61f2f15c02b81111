package selection

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/starford/vaultlens/internal/models"
)

const dayLayout = "2006-01-02"

// now is Wednesday 2026-10-21 12:00 UTC; with Sunday week start the
// current week begins on 2026-10-18.
var now = time.Date(2026, time.October, 21, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dailyDoc(date time.Time) models.Document {
	ts := date.Add(9 * time.Hour)
	return models.NewDocument(path.Join("Daily", date.Format(dayLayout)+".md"), ts, ts)
}

func doc(p string, ctime, mtime time.Time) models.Document {
	return models.NewDocument(p, ctime, mtime)
}

type fakeDaily struct {
	notes     map[string]models.Document
	createErr error
	creates   int
	lists     int
}

func newFakeDaily(dates ...time.Time) *fakeDaily {
	f := &fakeDaily{notes: map[string]models.Document{}}
	for _, d := range dates {
		f.add(dailyDoc(d))
	}
	return f
}

func (f *fakeDaily) add(d models.Document) {
	date, ok := f.DateOf(d)
	if !ok {
		return
	}
	f.notes["day-"+date.Format(dayLayout)] = d
}

func (f *fakeDaily) remove(d models.Document) {
	for k, v := range f.notes {
		if v.Basename == d.Basename {
			delete(f.notes, k)
		}
	}
}

func (f *fakeDaily) ListAll() (map[string]models.Document, error) {
	f.lists++
	out := make(map[string]models.Document, len(f.notes))
	for k, v := range f.notes {
		out[k] = v
	}
	return out, nil
}

func (f *fakeDaily) Lookup(date time.Time, snapshot map[string]models.Document) (models.Document, bool) {
	d, ok := snapshot["day-"+date.Format(dayLayout)]
	return d, ok
}

func (f *fakeDaily) Create(_ context.Context, date time.Time) (models.Document, error) {
	f.creates++
	if f.createErr != nil {
		return models.Document{}, f.createErr
	}
	d := dailyDoc(startOf(periodDay, date, time.Sunday))
	f.add(d)
	return d, nil
}

func (f *fakeDaily) DateOf(d models.Document) (time.Time, bool) {
	t, err := time.ParseInLocation(dayLayout, d.Basename, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (f *fakeDaily) Format() string { return "YYYY-MM-DD" }

type fakeDocs struct {
	docs  []models.Document
	lists int
	err   error
}

func (f *fakeDocs) ListAll() ([]models.Document, error) {
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Document(nil), f.docs...), nil
}

type fakeTags map[string][]string

func (f fakeTags) TagsOf(d models.Document) ([]string, bool) {
	tags, ok := f[d.Path]
	return tags, ok
}

var errFactory = errors.New("factory failed")

func basenames(docs []models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Basename
	}
	return out
}
