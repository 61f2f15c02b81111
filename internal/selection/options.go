package selection

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Mode is the membership strategy for the managed set.
type Mode string

// Membership modes.
const (
	ModeDaily  Mode = "daily"
	ModeFolder Mode = "folder"
	ModeTag    Mode = "tag"
)

// TimeRange selects the window applied to the managed set.
type TimeRange string

// Time ranges. An empty TimeRange behaves like RangeAll.
const (
	RangeAll         TimeRange = "all"
	RangeTodayAfter  TimeRange = "today-after"
	RangeWeek        TimeRange = "week"
	RangeMonth       TimeRange = "month"
	RangeYear        TimeRange = "year"
	RangeQuarter     TimeRange = "quarter"
	RangeLastWeek    TimeRange = "last-week"
	RangeLastMonth   TimeRange = "last-month"
	RangeLastYear    TimeRange = "last-year"
	RangeLastQuarter TimeRange = "last-quarter"
	RangeCustom      TimeRange = "custom"
)

// TimeField is a sort key plus direction. A "Reverse" suffix flips the direction.
type TimeField string

// Time fields.
const (
	FieldCTime        TimeField = "ctime"
	FieldMTime        TimeField = "mtime"
	FieldCTimeReverse TimeField = "ctimeReverse"
	FieldMTimeReverse TimeField = "mtimeReverse"
	FieldName         TimeField = "name"
	FieldNameReverse  TimeField = "nameReverse"
)

const reverseSuffix = "Reverse"

// Resolve splits the field into its base attribute (ctime, mtime or name)
// and whether the default direction is flipped.
func (f TimeField) Resolve() (base TimeField, reverse bool) {
	s := string(f)
	if strings.HasSuffix(s, reverseSuffix) {
		return TimeField(strings.TrimSuffix(s, reverseSuffix)), true
	}
	return f, false
}

// CustomRange is an inclusive window between two instants.
type CustomRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Options configures which documents the engine selects and how they are ordered.
type Options struct {
	Mode        Mode         `json:"mode" yaml:"mode"`
	Target      string       `json:"target,omitempty" yaml:"target"`
	TimeRange   TimeRange    `json:"time_range,omitempty" yaml:"time_range"`
	CustomRange *CustomRange `json:"custom_range,omitempty" yaml:"custom_range"`
	TimeField   TimeField    `json:"time_field,omitempty" yaml:"time_field"`
}

// Validate reports configuration the engine would otherwise skip silently:
// a missing target in folder/tag mode or a custom window without bounds.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Mode, validation.Required, validation.In(ModeDaily, ModeFolder, ModeTag)),
		validation.Field(&o.Target, validation.When(o.Mode == ModeFolder || o.Mode == ModeTag, validation.Required)),
		validation.Field(&o.TimeRange, validation.In(
			RangeAll, RangeTodayAfter, RangeWeek, RangeMonth, RangeYear, RangeQuarter,
			RangeLastWeek, RangeLastMonth, RangeLastYear, RangeLastQuarter, RangeCustom,
		)),
		validation.Field(&o.CustomRange, validation.When(o.TimeRange == RangeCustom, validation.NotNil)),
		validation.Field(&o.TimeField, validation.In(
			FieldCTime, FieldMTime, FieldCTimeReverse, FieldMTimeReverse, FieldName, FieldNameReverse,
		)),
	)
}

// OptionsPatch carries a partial update. Nil fields are left unchanged.
type OptionsPatch struct {
	Mode        *Mode        `json:"mode,omitempty"`
	Target      *string      `json:"target,omitempty"`
	TimeRange   *TimeRange   `json:"time_range,omitempty"`
	CustomRange *CustomRange `json:"custom_range,omitempty"`
	TimeField   *TimeField   `json:"time_field,omitempty"`
}

// Apply returns o with the patch merged in.
func (p OptionsPatch) Apply(o Options) Options {
	if p.Mode != nil {
		o.Mode = *p.Mode
	}
	if p.Target != nil {
		o.Target = *p.Target
	}
	if p.TimeRange != nil {
		o.TimeRange = *p.TimeRange
	}
	if p.CustomRange != nil {
		cr := *p.CustomRange
		o.CustomRange = &cr
	}
	if p.TimeField != nil {
		o.TimeField = *p.TimeField
	}
	return o
}

func customRangeEqual(a, b *CustomRange) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
