package decision

import (
	"regexp"
	"strings"
)

// suppressPatterns mark structural/metadata questions: the answer comes from
// the ontology alone, so analytics is off regardless of downstream signals.
// Anchored on interrogative phrasing; a question that merely contains a word
// like "type" ("an unusual type of spike") must not be caught.
var suppressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhat(?:'s| is| are)?\s+(?:the\s+|its\s+)?(?:label|type|class)s?\b`),
	regexp.MustCompile(`(?i)\bwhich\s+(?:label|type|class)s?\b`),
	regexp.MustCompile(`(?i)\blocated\b`),
	regexp.MustCompile(`(?i)\blocation\s+of\b`),
	regexp.MustCompile(`(?i)\bwhich\s+sensors\b`),
	regexp.MustCompile(`(?i)\blist\s+(?:the\s+)?sensors\b`),
	regexp.MustCompile(`(?i)\bhow\s+many\s+sensors\b`),
	regexp.MustCompile(`(?i)\bwhat\s+sensors\b`),
}

// fallbackGroups drive the deterministic keyword heuristic. Groups are
// checked in order; the first one whose keyword appears in the question wins.
var fallbackGroups = []struct {
	Keywords []string
	Type     string
}{
	// Correlation before humidity: "correlate humidity and temperature"
	// is a correlation question.
	{Keywords: []string{"correlat", "relationship", "compare", " versus ", " vs "}, Type: "correlation"},
	{Keywords: []string{"anomal", "outlier", "spike", "unusual", "abnormal"}, Type: "anomaly"},
	{Keywords: []string{"humidity", "humid", "comfort", "dew point"}, Type: "humidity_comfort"},
}

// fallbackDefaultType applies when no keyword group matches.
const fallbackDefaultType = "trend"

func matchesSuppression(question string) bool {
	for _, re := range suppressPatterns {
		if re.MatchString(question) {
			return true
		}
	}
	return false
}

func fallbackType(question string) string {
	q := strings.ToLower(question)
	for _, g := range fallbackGroups {
		for _, kw := range g.Keywords {
			if strings.Contains(q, kw) {
				return g.Type
			}
		}
	}
	return fallbackDefaultType
}
