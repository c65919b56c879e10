// Package resolve extracts sensor mentions from free text and canonicalizes
// them against the sensor registry.
package resolve

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"
)

type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchFuzzy     MatchKind = "fuzzy"
	MatchUnmatched MatchKind = "unmatched"
)

// Mention is one sensor occurrence found in a question.
type Mention struct {
	Raw         string
	Normalized  string
	CanonicalID string
	Score       int
	Kind        MatchKind
}

var (
	// Already-delimited identifier-like tokens: CO2_Sensor_3, room-5.temp
	identRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*(?:[_\-.][A-Za-z0-9]+)+`)
	// Natural-language mentions ending in a numeric suffix: "CO2 sensor 3"
	phraseRe    = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*(?:\s+[A-Za-z][A-Za-z0-9]*){0,3}\s+\d+\b`)
	separatorRe = regexp.MustCompile(`[\s_\-.]+`)
)

type Resolver struct {
	threshold int
	logger    *zap.Logger
}

func NewResolver(threshold int, logger *zap.Logger) *Resolver {
	if threshold <= 0 {
		threshold = 80
	}
	return &Resolver{threshold: threshold, logger: logger.Named("resolve")}
}

// Resolve finds sensor mentions in question, canonicalizes each against the
// registry names, and returns the mentions plus the question with every
// matched mention replaced by its canonical form. Replacement happens at the
// extracted spans, so repeated mentions of the same sensor all get rewritten.
// Unmatched mentions pass through unchanged.
func (r *Resolver) Resolve(question string, registry []string) ([]Mention, string) {
	exact := make(map[string]string, len(registry))
	for _, name := range registry {
		exact[Normalize(name)] = name
	}

	type edit struct {
		start, end int
		text       string
	}

	var mentions []Mention
	var edits []edit
	for _, sp := range extract(question) {
		m := r.canonicalize(sp.text, registry, exact)
		mentions = append(mentions, m)
		if m.Kind == MatchUnmatched {
			r.logger.Info("unmatched sensor mention", zap.String("raw", sp.text))
			continue
		}
		// canonicalize may have stripped leading filler words; m.Raw is
		// a suffix of the span.
		off := strings.LastIndex(sp.text, m.Raw)
		edits = append(edits, edit{
			start: sp.start + off,
			end:   sp.start + off + len(m.Raw),
			text:  m.CanonicalID,
		})
	}

	// Spans are ascending and disjoint; applying edits back to front keeps
	// the earlier offsets valid.
	rewritten := question
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		rewritten = rewritten[:e.start] + e.text + rewritten[e.end:]
	}

	return mentions, rewritten
}

// Normalize collapses separator and case variation so spelling variants of
// the same name compare equal.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return separatorRe.ReplaceAllString(s, "_")
}

type span struct {
	start, end int
	text       string
}

func extract(question string) []span {
	var spans []span
	for _, loc := range identRe.FindAllStringIndex(question, -1) {
		spans = append(spans, span{loc[0], loc[1], question[loc[0]:loc[1]]})
	}
	for _, loc := range phraseRe.FindAllStringIndex(question, -1) {
		overlaps := false
		for _, s := range spans {
			if loc[0] < s.end && loc[1] > s.start {
				overlaps = true
				break
			}
		}
		if !overlaps {
			spans = append(spans, span{loc[0], loc[1], question[loc[0]:loc[1]]})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func (r *Resolver) canonicalize(raw string, registry []string, exact map[string]string) Mention {
	// A phrase match may carry leading filler words ("in Room 5"); strip
	// them one at a time until something canonicalizes.
	candidate := raw
	for {
		if m, ok := r.match(raw, candidate, registry, exact); ok {
			return m
		}
		words := strings.Fields(candidate)
		if len(words) <= 2 {
			break
		}
		candidate = strings.Join(words[1:], " ")
	}
	return Mention{Raw: raw, Normalized: Normalize(raw), Kind: MatchUnmatched}
}

func (r *Resolver) match(raw, candidate string, registry []string, exact map[string]string) (Mention, bool) {
	norm := Normalize(candidate)
	if canonical, ok := exact[norm]; ok {
		return Mention{Raw: candidate, Normalized: norm, CanonicalID: canonical, Score: 100, Kind: MatchExact}, true
	}

	best := ""
	bestScore := 0
	for _, name := range registry {
		score := Ratio(norm, Normalize(name))
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if bestScore >= r.threshold {
		return Mention{Raw: candidate, Normalized: norm, CanonicalID: best, Score: bestScore, Kind: MatchFuzzy}, true
	}
	return Mention{}, false
}

// Ratio is a 0-100 similarity score between two normalized names.
func Ratio(a, b string) int {
	return int(math.Round(levenshtein.Match(a, b, nil) * 100))
}
