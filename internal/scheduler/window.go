package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Window restricts polling to the minutes matched by a cron expression,
// e.g. "* 8-21 * * 1-5" for weekday office hours.
type Window struct {
	expr  string
	sched cron.Schedule
	loc   *time.Location
}

// ParseWindow parses a standard five-field cron expression. An empty
// expression yields a nil window, which allows every minute.
func ParseWindow(expr string, loc *time.Location) (*Window, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse active hours %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Window{expr: expr, sched: sched, loc: loc}, nil
}

func (w *Window) Allows(t time.Time) bool {
	if w == nil {
		return true
	}
	minute := t.In(w.loc).Truncate(time.Minute)
	return w.sched.Next(minute.Add(-time.Second)).Equal(minute)
}

func (w *Window) String() string {
	if w == nil {
		return "always"
	}
	return w.expr
}
