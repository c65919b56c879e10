package translate

import (
	"regexp"
	"strings"
)

// The translation model emits lowercased bldg: local names ("bldg:co2_sensor_3")
// while the store's individuals follow a capitalized convention
// ("bldg:CO2_Sensor_3"). Until the upstream naming is unified, a query that
// came back empty and carries the lowercased pattern gets exactly one retry
// with the casing normalized. TODO: delete this file once the store and the
// translation model agree on naming.

var lowerLocalRe = regexp.MustCompile(`\bbldg:([a-z][a-z0-9]*(?:_[a-z0-9]+)*)\b`)

// acronymCasing maps lowercased name segments to the store's spelling where
// plain title-casing would get it wrong.
var acronymCasing = map[string]string{
	"co":   "CO",
	"co2":  "CO2",
	"voc":  "VOC",
	"pm25": "PM25",
	"vav":  "VAV",
	"ahu":  "AHU",
	"rtu":  "RTU",
	"hvac": "HVAC",
}

// NeedsCaseRetry reports whether the query text contains the lowercased
// naming pattern the retry rule targets.
func NeedsCaseRetry(query string) bool {
	return lowerLocalRe.MatchString(query)
}

// NormalizeLocalNames rewrites every lowercased bldg: local name to the
// store's casing convention: underscore segments title-cased, with the
// acronym table overriding.
func NormalizeLocalNames(query string) string {
	return lowerLocalRe.ReplaceAllStringFunc(query, func(m string) string {
		local := strings.TrimPrefix(m, "bldg:")
		segments := strings.Split(local, "_")
		for i, seg := range segments {
			if fixed, ok := acronymCasing[seg]; ok {
				segments[i] = fixed
				continue
			}
			segments[i] = strings.ToUpper(seg[:1]) + seg[1:]
		}
		return "bldg:" + strings.Join(segments, "_")
	})
}
