package source

import (
	"regexp"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"06-01-02",
	"06.01.02",
	"06/01/02",
	"2006-1-2",
	"2006.1.2",
	"2006/1/2",
}

var spaces = regexp.MustCompile(`\s+`)

// ParseDate parses the date formats found on bulletin boards and feeds.
// Zoneless values are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	s = strings.TrimSuffix(s, ".")
	s = strings.ReplaceAll(s, ". ", ".")
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
