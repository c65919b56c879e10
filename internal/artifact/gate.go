package artifact

import "strings"

// failureKeywords bypass verbosity gating: actionable errors must reach the
// caller even in quiet mode.
var failureKeywords = []string{
	"error",
	"failed",
	"failure",
	"unavailable",
	"timeout",
	"invalid",
}

// Gate collects stage announcements and decides which ones the caller sees.
// Always-visible messages (final summary, explicit errors, prompts to the
// user) are never suppressed; detail messages only surface in verbose mode.
type Gate struct {
	verbose bool
	events  []event
}

type event struct {
	message string
	detail  bool
}

func NewGate(verbose bool) *Gate {
	return &Gate{verbose: verbose}
}

// User records an always-visible announcement.
func (g *Gate) User(message string) {
	g.events = append(g.events, event{message: message})
}

// Detail records a detail-gated announcement.
func (g *Gate) Detail(message string) {
	g.events = append(g.events, event{message: message, detail: true})
}

// Visible returns the announcements the caller should see, in order.
func (g *Gate) Visible() []string {
	var out []string
	for _, e := range g.events {
		if e.detail && !g.verbose && !containsFailureKeyword(e.message) {
			continue
		}
		out = append(out, e.message)
	}
	return out
}

func containsFailureKeyword(message string) bool {
	m := strings.ToLower(message)
	for _, kw := range failureKeywords {
		if strings.Contains(m, kw) {
			return true
		}
	}
	return false
}
