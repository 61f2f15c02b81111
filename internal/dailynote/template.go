package dailynote

import (
	"regexp"
	"strings"
	"time"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*(date|time|title|yesterday|tomorrow)\s*(?::([^}]*?))?\s*\}\}`)

const defaultTimeFormat = "HH:mm"

type templateVars struct {
	date   time.Time
	now    time.Time
	title  string
	layout *Layout
}

// renderTemplate substitutes {{date}}, {{date:FORMAT}}, {{time}},
// {{time:FORMAT}}, {{title}}, {{yesterday}} and {{tomorrow}}. Placeholders
// with an invalid format are left untouched.
func renderTemplate(src string, v templateVars) string {
	return placeholderRe.ReplaceAllStringFunc(src, func(m string) string {
		sub := placeholderRe.FindStringSubmatch(m)
		name, custom := sub[1], strings.TrimSpace(sub[2])

		layout := v.layout
		if name == "time" && custom == "" {
			custom = defaultTimeFormat
		}
		if custom != "" {
			l, err := ParseLayout(custom)
			if err != nil {
				return m
			}
			layout = l
		}

		switch name {
		case "title":
			return v.title
		case "time":
			// the time of day comes from the clock, the date part from the note
			at := time.Date(v.date.Year(), v.date.Month(), v.date.Day(),
				v.now.Hour(), v.now.Minute(), v.now.Second(), 0, v.date.Location())
			return layout.Format(at)
		case "yesterday":
			return layout.Format(v.date.AddDate(0, 0, -1))
		case "tomorrow":
			return layout.Format(v.date.AddDate(0, 0, 1))
		default:
			return layout.Format(v.date)
		}
	})
}
