// Package timerange resolves user-supplied dates and relative phrases into a
// canonical query window.
package timerange

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Layout is the canonical window timestamp form.
const Layout = "2006-01-02 15:04:05"

// ErrInvalidWindow reports a resolved window whose start is not before its
// end. The caller is expected to re-request dates from the user.
var ErrInvalidWindow = errors.New("window start must be before end")

type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) StartString() string { return w.Start.Format(Layout) }
func (w Window) EndString() string   { return w.End.Format(Layout) }

var (
	lastNRe = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s+(hour|day|week|month)s?\b`)
	lastRe  = regexp.MustCompile(`(?i)\b(?:last|past)\s+(hour|day|week|month)\b`)
)

// relativeDuration extracts a trailing-window duration from phrases like
// "last 24 hours", "past week" or "yesterday". Returns false when the text
// carries no recognizable relative phrase.
func relativeDuration(text string) (time.Duration, bool) {
	if m := lastNRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return time.Duration(n) * unitDuration(m[2]), true
		}
	}
	if m := lastRe.FindStringSubmatch(text); m != nil {
		return unitDuration(m[1]), true
	}
	if strings.Contains(strings.ToLower(text), "yesterday") {
		return 24 * time.Hour, true
	}
	return 0, false
}

func unitDuration(unit string) time.Duration {
	switch strings.ToLower(unit) {
	case "hour":
		return time.Hour
	case "day":
		return 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	}
	return 24 * time.Hour
}

func parseBoundary(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	// Ambiguous slash dates are day-first here, not US month-first.
	t, err := dateparse.ParseAny(text,
		dateparse.PreferMonthFirst(false),
		dateparse.RetryAmbiguousDateWithSwap(true))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Normalize resolves explicit boundaries and/or a relative phrase in the
// question into a window. Policy: both boundaries win; one boundary plus a
// duration derives the other; a bare duration trails from now; nothing at all
// defaults to the trailing 24 hours.
func Normalize(startText, endText, question string, now time.Time) (Window, error) {
	start, haveStart := parseBoundary(startText)
	end, haveEnd := parseBoundary(endText)
	dur, haveDur := relativeDuration(question)

	var w Window
	switch {
	case haveStart && haveEnd:
		w = Window{Start: start, End: end}
	case haveStart && haveDur:
		w = Window{Start: start, End: start.Add(dur)}
	case haveEnd && haveDur:
		w = Window{Start: end.Add(-dur), End: end}
	case haveStart:
		w = Window{Start: start, End: now}
	case haveEnd:
		w = Window{Start: end.Add(-24 * time.Hour), End: end}
	case haveDur:
		w = Window{Start: now.Add(-dur), End: now}
	default:
		w = Window{Start: now.Add(-24 * time.Hour), End: now}
	}

	if !w.Start.Before(w.End) {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}
