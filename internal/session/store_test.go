package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bldgsense/sensoria/internal/decision"
	"github.com/bldgsense/sensoria/internal/kg"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, time.Minute)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &State{
		SessionID: "sess-1",
		Question:  "Correlate Humidity_Sensor_2 and Temp_Sensor_1",
		Decision: &decision.Decision{
			Perform:       true,
			AnalyticsType: "correlation",
			Source:        decision.SourceExternal,
		},
		References: []kg.TimeseriesReference{
			{SensorID: "Humidity_Sensor_2", SeriesID: "123e4567-e89b-12d3-a456-426614174000"},
		},
		AwaitingDates: true,
	}
	require.NoError(t, store.Save(ctx, in))

	out, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Question, out.Question)
	assert.Equal(t, "correlation", out.Decision.AnalyticsType)
	assert.Len(t, out.References, 1)
	assert.True(t, out.AwaitingDates)
	assert.False(t, out.UpdatedAt.IsZero())
}

func TestLoadMissingSessionIsNil(t *testing.T) {
	store := newTestStore(t)

	out, err := store.Load(context.Background(), "nope")

	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &State{SessionID: "sess-2", Question: "q"}))
	require.NoError(t, store.Clear(ctx, "sess-2"))

	out, err := store.Load(ctx, "sess-2")
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestSaveSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)

	require.NoError(t, store.Save(context.Background(), &State{SessionID: "sess-3"}))

	assert.Equal(t, time.Minute, mr.TTL("session:sess-3"))
}
