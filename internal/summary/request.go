// Package summary turns pipeline output into a natural-language answer.
package summary

import (
	"github.com/bldgsense/sensoria/internal/kg"
)

type Mode string

const (
	ModeOntologyOnly Mode = "ontology_only"
	ModeEnriched     Mode = "enriched"
)

// Request is a tagged union: exactly one of the two concrete types below.
// Which one is a hard rule owned by the pipeline: OntologyOnly iff no
// timeseries reference was extracted for the question.
type Request interface {
	Mode() Mode
}

// OntologyOnly carries the rewritten question and the standardized binding
// records. No raw query text, no timeseries artifacts.
type OntologyOnly struct {
	Question string
	Records  []kg.BindingRecord
}

func (OntologyOnly) Mode() Mode { return ModeOntologyOnly }

// Enriched carries the original question and the rewritten
// analytics/telemetry result.
type Enriched struct {
	Question string
	Result   string
	// Note is set when the analytics call degraded to telemetry-only.
	Note string
}

func (Enriched) Mode() Mode { return ModeEnriched }
