package dailynote

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultFormat is used when no daily-note format is configured.
const DefaultFormat = "YYYY-MM-DD"

type tokenKind int

const (
	tokLiteral tokenKind = iota
	tokYear4
	tokYear2
	tokMonthName
	tokMonthShort
	tokMonth2
	tokMonth
	tokDay2
	tokDay
	tokWeekday
	tokWeekdayShort
	tokHour2
	tokHour
	tokMinute2
	tokSecond2
)

// Longer tokens first so "YYYY" wins over "YY" and "MMMM" over "MM".
var tokenTable = []struct {
	text string
	kind tokenKind
}{
	{"YYYY", tokYear4},
	{"YY", tokYear2},
	{"MMMM", tokMonthName},
	{"MMM", tokMonthShort},
	{"MM", tokMonth2},
	{"M", tokMonth},
	{"DD", tokDay2},
	{"D", tokDay},
	{"dddd", tokWeekday},
	{"ddd", tokWeekdayShort},
	{"HH", tokHour2},
	{"H", tokHour},
	{"mm", tokMinute2},
	{"ss", tokSecond2},
}

type token struct {
	kind tokenKind
	lit  string
}

// Layout is a compiled moment-style date format such as "YYYY-MM-DD" or
// "YYYY/MM/[Week] dddd". Text in square brackets is emitted verbatim.
type Layout struct {
	source string
	tokens []token
	re     *regexp.Regexp
}

// ParseLayout compiles a moment-style format string. Unknown letters are
// treated as literal text.
func ParseLayout(format string) (*Layout, error) {
	if format == "" {
		format = DefaultFormat
	}
	var toks []token
	addLit := func(s string) {
		if n := len(toks); n > 0 && toks[n-1].kind == tokLiteral {
			toks[n-1].lit += s
			return
		}
		toks = append(toks, token{kind: tokLiteral, lit: s})
	}

	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("dailynote: format %q: unterminated literal", format)
			}
			addLit(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		matched := false
		for _, t := range tokenTable {
			if strings.HasPrefix(format[i:], t.text) {
				toks = append(toks, token{kind: t.kind})
				i += len(t.text)
				matched = true
				break
			}
		}
		if !matched {
			addLit(format[i : i+1])
			i++
		}
	}

	re, err := compileTokens(toks)
	if err != nil {
		return nil, fmt.Errorf("dailynote: format %q: %w", format, err)
	}
	return &Layout{source: format, tokens: toks, re: re}, nil
}

// String returns the source format.
func (l *Layout) String() string { return l.source }

// Format renders t.
func (l *Layout) Format(t time.Time) string {
	var b strings.Builder
	for _, tok := range l.tokens {
		switch tok.kind {
		case tokLiteral:
			b.WriteString(tok.lit)
		case tokYear4:
			fmt.Fprintf(&b, "%04d", t.Year())
		case tokYear2:
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case tokMonthName:
			b.WriteString(t.Month().String())
		case tokMonthShort:
			b.WriteString(t.Month().String()[:3])
		case tokMonth2:
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case tokMonth:
			b.WriteString(strconv.Itoa(int(t.Month())))
		case tokDay2:
			fmt.Fprintf(&b, "%02d", t.Day())
		case tokDay:
			b.WriteString(strconv.Itoa(t.Day()))
		case tokWeekday:
			b.WriteString(t.Weekday().String())
		case tokWeekdayShort:
			b.WriteString(t.Weekday().String()[:3])
		case tokHour2:
			fmt.Fprintf(&b, "%02d", t.Hour())
		case tokHour:
			b.WriteString(strconv.Itoa(t.Hour()))
		case tokMinute2:
			fmt.Fprintf(&b, "%02d", t.Minute())
		case tokSecond2:
			fmt.Fprintf(&b, "%02d", t.Second())
		}
	}
	return b.String()
}

// Parse strictly parses s and returns midnight of the parsed day in loc.
// The whole string must match, the day must exist in its month and a
// weekday token, when present, must agree with the date.
func (l *Layout) Parse(s string, loc *time.Location) (time.Time, error) {
	m := l.re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("dailynote: %q does not match %q", s, l.source)
	}

	year, month, dayOfMonth := 1970, 1, 1
	weekday := -1
	group := 1
	for _, tok := range l.tokens {
		if tok.kind == tokLiteral {
			continue
		}
		v := m[group]
		group++
		switch tok.kind {
		case tokYear4:
			year, _ = strconv.Atoi(v)
		case tokYear2:
			n, _ := strconv.Atoi(v)
			year = 2000 + n
			if n >= 69 {
				year = 1900 + n
			}
		case tokMonthName, tokMonthShort:
			month = monthIndex(v)
		case tokMonth2, tokMonth:
			month, _ = strconv.Atoi(v)
		case tokDay2, tokDay:
			dayOfMonth, _ = strconv.Atoi(v)
		case tokWeekday, tokWeekdayShort:
			weekday = weekdayIndex(v)
		}
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("dailynote: %q: month out of range", s)
	}
	t := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, loc)
	if t.Day() != dayOfMonth || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("dailynote: %q: day out of range", s)
	}
	if weekday >= 0 && int(t.Weekday()) != weekday {
		return time.Time{}, fmt.Errorf("dailynote: %q: weekday mismatch", s)
	}
	return t, nil
}

// Basename returns the layout of the last path segment. Daily notes may
// live in dated sub-folders but are matched by file name alone.
func (l *Layout) Basename() *Layout {
	last := -1
	for i, tok := range l.tokens {
		if tok.kind == tokLiteral && strings.Contains(tok.lit, "/") {
			last = i
		}
	}
	if last < 0 {
		return l
	}
	var toks []token
	if rest := l.tokens[last].lit[strings.LastIndex(l.tokens[last].lit, "/")+1:]; rest != "" {
		toks = append(toks, token{kind: tokLiteral, lit: rest})
	}
	toks = append(toks, l.tokens[last+1:]...)
	re, _ := compileTokens(toks)
	src := l.source[strings.LastIndex(l.source, "/")+1:]
	return &Layout{source: src, tokens: toks, re: re}
}

func compileTokens(toks []token) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, tok := range toks {
		switch tok.kind {
		case tokLiteral:
			b.WriteString(regexp.QuoteMeta(tok.lit))
		case tokYear4:
			b.WriteString(`(\d{4})`)
		case tokYear2, tokMonth2, tokDay2, tokHour2, tokMinute2, tokSecond2:
			b.WriteString(`(\d{2})`)
		case tokMonth, tokDay, tokHour:
			b.WriteString(`(\d{1,2})`)
		case tokMonthName:
			b.WriteString(`(` + strings.Join(monthNames(false), "|") + `)`)
		case tokMonthShort:
			b.WriteString(`(` + strings.Join(monthNames(true), "|") + `)`)
		case tokWeekday:
			b.WriteString(`(` + strings.Join(weekdayNames(false), "|") + `)`)
		case tokWeekdayShort:
			b.WriteString(`(` + strings.Join(weekdayNames(true), "|") + `)`)
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func monthNames(short bool) []string {
	out := make([]string, 12)
	for i := range out {
		out[i] = time.Month(i + 1).String()
		if short {
			out[i] = out[i][:3]
		}
	}
	return out
}

func weekdayNames(short bool) []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = time.Weekday(i).String()
		if short {
			out[i] = out[i][:3]
		}
	}
	return out
}

func monthIndex(name string) int {
	for i := 1; i <= 12; i++ {
		full := time.Month(i).String()
		if name == full || name == full[:3] {
			return i
		}
	}
	return 0
}

func weekdayIndex(name string) int {
	for i := 0; i < 7; i++ {
		full := time.Weekday(i).String()
		if name == full || name == full[:3] {
			return i
		}
	}
	return -1
}
