package kg

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Namespace prefixes known to the building ontology. Only the ones a query
// actually references get injected, to keep the request payload bounded.
var defaultPrefixes = map[string]string{
	"brick": "https://brickschema.org/schema/Brick#",
	"bldg":  "http://example.com/building#",
	"ref":   "https://brickschema.org/schema/Brick/ref#",
	"rdf":   "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":  "http://www.w3.org/2000/01/rdf-schema#",
	"unit":  "http://qudt.org/vocab/unit/",
	"xsd":   "http://www.w3.org/2001/XMLSchema#",
}

var prefixUseRe = map[string]*regexp.Regexp{}

func init() {
	for p := range defaultPrefixes {
		// Property paths put prefixes after / | and ^ too.
		prefixUseRe[p] = regexp.MustCompile(`(^|[\s({,/|^])` + p + `:`)
	}
}

// InjectPrefixes prepends PREFIX declarations for every known namespace the
// query references and does not already declare. Queries referencing no known
// prefix (Cypher, for instance) pass through unchanged.
func InjectPrefixes(query string) string {
	var needed []string
	for p, re := range prefixUseRe {
		if !re.MatchString(query) {
			continue
		}
		if strings.Contains(query, "PREFIX "+p+":") {
			continue
		}
		needed = append(needed, p)
	}
	if len(needed) == 0 {
		return query
	}
	sort.Strings(needed)

	var b strings.Builder
	for _, p := range needed {
		fmt.Fprintf(&b, "PREFIX %s: <%s>\n", p, defaultPrefixes[p])
	}
	b.WriteString(query)
	return b.String()
}
