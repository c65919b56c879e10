package kg

import (
	"regexp"
	"strings"
)

// TimeseriesReference points at raw telemetry: which sensor, which stored
// series, and where the series lives.
type TimeseriesReference struct {
	SensorID    string `json:"sensor_id"`
	SeriesID    string `json:"series_id"`
	StorageHint string `json:"storage_hint"`
}

var seriesIDRe = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ExtractReferences scans standardized records for embedded series
// identifiers. A reference needs a series-id shaped value (UUID, or any value
// under a timeseries-named field); the storage hint and owning sensor come
// from sibling fields. Duplicate (sensor, series) pairs are dropped. Pure.
func ExtractReferences(records []BindingRecord) []TimeseriesReference {
	var refs []TimeseriesReference
	seen := make(map[[2]string]bool)

	for _, rec := range records {
		var seriesKey, seriesID string
		for _, k := range rec.Keys() {
			v, _ := rec.Get(k)
			if isSeriesField(k) || seriesIDRe.MatchString(v) {
				seriesKey, seriesID = k, v
				break
			}
		}
		if seriesID == "" {
			continue
		}

		var storage, sensor string
		for _, k := range rec.Keys() {
			if k == seriesKey {
				continue
			}
			v, _ := rec.Get(k)
			switch {
			case isStorageField(k) && storage == "":
				storage = v
			case isSensorField(k) && sensor == "":
				sensor = v
			}
		}
		if sensor == "" {
			// Fall back to the first field that is neither the series
			// id nor the storage hint.
			for _, k := range rec.Keys() {
				if k == seriesKey || isStorageField(k) {
					continue
				}
				sensor, _ = rec.Get(k)
				break
			}
		}

		key := [2]string{sensor, seriesID}
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, TimeseriesReference{
			SensorID:    sensor,
			SeriesID:    seriesID,
			StorageHint: storage,
		})
	}

	return refs
}

func isSeriesField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "timeseries") || strings.Contains(n, "series_id")
}

func isStorageField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "stored") || strings.Contains(n, "storage") || strings.Contains(n, "database") || n == "db"
}

func isSensorField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "sensor") || strings.Contains(n, "point")
}
