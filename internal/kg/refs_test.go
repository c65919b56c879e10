package kg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uuidA = "123e4567-e89b-12d3-a456-426614174000"
	uuidB = "9b2d1e00-5c1f-4a7e-8a2b-0f3c6d9e1a2b"
)

func record(pairs ...string) BindingRecord {
	rec := NewBindingRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i], pairs[i+1])
	}
	return rec
}

func TestExtractReferencesFullRecord(t *testing.T) {
	records := []BindingRecord{
		record("sensor", "CO2_Sensor_3", "timeseries_id", uuidA, "stored_at", "postgres"),
	}

	refs := ExtractReferences(records)

	require.Len(t, refs, 1)
	assert.Equal(t, "CO2_Sensor_3", refs[0].SensorID)
	assert.Equal(t, uuidA, refs[0].SeriesID)
	assert.Equal(t, "postgres", refs[0].StorageHint)
}

func TestExtractReferencesByUUIDShape(t *testing.T) {
	// No timeseries-named field; the UUID-shaped value is enough.
	records := []BindingRecord{
		record("point", "Temp_Sensor_1", "id", uuidB),
	}

	refs := ExtractReferences(records)

	require.Len(t, refs, 1)
	assert.Equal(t, "Temp_Sensor_1", refs[0].SensorID)
	assert.Equal(t, uuidB, refs[0].SeriesID)
	assert.Empty(t, refs[0].StorageHint)
}

func TestExtractReferencesSensorFallback(t *testing.T) {
	// No sensor-named field either; the first remaining field wins.
	records := []BindingRecord{
		record("label", "Zone 5 CO2", "id", uuidA, "database", "timescale"),
	}

	refs := ExtractReferences(records)

	require.Len(t, refs, 1)
	assert.Equal(t, "Zone 5 CO2", refs[0].SensorID)
	assert.Equal(t, "timescale", refs[0].StorageHint)
}

func TestExtractReferencesDeduplicates(t *testing.T) {
	records := []BindingRecord{
		record("sensor", "CO2_Sensor_3", "timeseries_id", uuidA),
		record("sensor", "CO2_Sensor_3", "timeseries_id", uuidA, "stored_at", "postgres"),
		record("sensor", "CO2_Sensor_4", "timeseries_id", uuidB),
	}

	refs := ExtractReferences(records)

	require.Len(t, refs, 2)
	assert.Equal(t, "CO2_Sensor_3", refs[0].SensorID)
	assert.Equal(t, "CO2_Sensor_4", refs[1].SensorID)
}

func TestExtractReferencesNoneWithoutSeriesID(t *testing.T) {
	records := []BindingRecord{
		record("sensor", "CO2_Sensor_3", "label", "Room 5 CO2"),
		record("s", "CO2_Sensor_4"),
	}

	assert.Empty(t, ExtractReferences(records))
}

func TestExtractReferencesPure(t *testing.T) {
	records := []BindingRecord{
		record("sensor", "CO2_Sensor_3", "timeseries_id", uuidA),
	}

	first := ExtractReferences(records)
	second := ExtractReferences(records)

	assert.Equal(t, first, second)
	v, _ := records[0].Get("sensor")
	assert.Equal(t, "CO2_Sensor_3", v)
}
