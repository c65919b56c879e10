// Package analytics shapes telemetry into the execution service's payload
// and optionally invokes it.
package analytics

import (
	"encoding/json"
	"regexp"
	"sort"

	"github.com/bldgsense/sensoria/internal/telemetry"
)

type Shape string

const (
	ShapeFlat   Shape = "flat"
	ShapeNested Shape = "nested"
)

type policy struct {
	Shape Shape
	// PerInstance keeps each sensor instance as its own key instead of
	// collapsing instances of the same kind into a base key.
	PerInstance bool
}

// shapePolicies is the analytics-type policy table. Types absent here get
// defaultPolicy. Adding a type is a table edit, nothing else.
var shapePolicies = map[string]policy{
	// Correlating merged rooms would correlate an artifact, not a pair of
	// sensors.
	"correlation": {Shape: ShapeFlat, PerInstance: true},
	// Comfort scoring per zone must not double-count collapsed rooms.
	"humidity_comfort": {Shape: ShapeNested, PerInstance: true},
}

var defaultPolicy = policy{Shape: ShapeNested, PerInstance: false}

func policyFor(analyticsType string) policy {
	if p, ok := shapePolicies[analyticsType]; ok {
		return p
	}
	return defaultPolicy
}

// ShapeFor reports the payload shape for an analytics type. Pure.
func ShapeFor(analyticsType string) Shape {
	return policyFor(analyticsType).Shape
}

// Payload is the canonical analytics request body.
type Payload struct {
	AnalysisType string
	Shape        Shape
	SeriesByKey  map[string][]telemetry.Point
}

// MarshalJSON renders the two shapes: flat puts one top-level key per sensor
// instance next to analysis_type; nested groups everything under "series".
func (p Payload) MarshalJSON() ([]byte, error) {
	if p.Shape == ShapeFlat {
		flat := make(map[string]interface{}, len(p.SeriesByKey)+1)
		flat["analysis_type"] = p.AnalysisType
		for k, v := range p.SeriesByKey {
			flat[k] = v
		}
		return json.Marshal(flat)
	}
	return json.Marshal(map[string]interface{}{
		"analysis_type": p.AnalysisType,
		"series":        p.SeriesByKey,
	})
}

var instanceSuffixRe = regexp.MustCompile(`_\d+$`)

// baseKey drops the trailing instance number: CO2_Sensor_3 -> CO2_Sensor.
func baseKey(name string) string {
	return instanceSuffixRe.ReplaceAllString(name, "")
}

// BuildPayload shapes fetched series per the analytics type's policy.
// sensorBySeries maps series ids to canonical sensor names; series without a
// mapping keep their id as key.
func BuildPayload(analyticsType string, series map[string][]telemetry.Point, sensorBySeries map[string]string) Payload {
	p := policyFor(analyticsType)

	byKey := make(map[string][]telemetry.Point)
	for seriesID, points := range series {
		key := seriesID
		if name, ok := sensorBySeries[seriesID]; ok && name != "" {
			key = name
		}
		if !p.PerInstance {
			key = baseKey(key)
		}
		byKey[key] = append(byKey[key], points...)
	}

	// Collapsed keys merge several instances; keep readings ordered.
	for key := range byKey {
		pts := byKey[key]
		sort.Slice(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
		byKey[key] = pts
	}

	return Payload{
		AnalysisType: analyticsType,
		Shape:        p.Shape,
		SeriesByKey:  byKey,
	}
}
