package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLLM struct {
	response string
	err      error
	prompt   string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestTranslateRemote(t *testing.T) {
	var got translateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]string{
			"query": "SELECT ?id WHERE { bldg:CO2_Sensor_3 ref:hasTimeseriesId ?id }",
		})
	}))
	defer srv.Close()

	a := NewAdapter(srv.URL, 5*time.Second, nil, "", zap.NewNop())
	res, err := a.Translate(context.Background(), "CO2_Sensor_3 readings", "CO2_Sensor_3")

	require.NoError(t, err)
	assert.Equal(t, "CO2_Sensor_3 readings", got.Question)
	assert.Equal(t, "CO2_Sensor_3", got.Entity)
	assert.Equal(t, "SELECT ?id WHERE { bldg:CO2_Sensor_3 ref:hasTimeseriesId ?id }", res.Query)
	assert.Equal(t, "CO2_Sensor_3", res.SourceEntity)
	assert.False(t, res.Retried)
}

func TestTranslateRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewAdapter(srv.URL, 5*time.Second, nil, "", zap.NewNop())
	_, err := a.Translate(context.Background(), "question", "")

	require.Error(t, err)
	var te *Error
	assert.True(t, errors.As(err, &te))
	assert.Contains(t, err.Error(), "503")
}

func TestTranslateLLMFallbackStripsFences(t *testing.T) {
	llm := &stubLLM{response: "```sparql\nSELECT ?s WHERE { ?s rdf:type brick:Sensor }\n```"}

	a := NewAdapter("", 5*time.Second, llm, "", zap.NewNop())
	res, err := a.Translate(context.Background(), "List all sensors", "")

	require.NoError(t, err)
	assert.Equal(t, "SELECT ?s WHERE { ?s rdf:type brick:Sensor }", res.Query)
	assert.Contains(t, llm.prompt, "List all sensors")
}

func TestTranslateEmptyQueryIsAnError(t *testing.T) {
	llm := &stubLLM{response: "```\n```"}

	a := NewAdapter("", 5*time.Second, llm, "", zap.NewNop())
	_, err := a.Translate(context.Background(), "question", "")

	require.Error(t, err)
	var te *Error
	assert.True(t, errors.As(err, &te))
}

type stallingLLM struct{}

func (stallingLLM) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTranslateLLMFallbackIsBounded(t *testing.T) {
	a := NewAdapter("", 50*time.Millisecond, stallingLLM{}, "", zap.NewNop())

	start := time.Now()
	_, err := a.Translate(context.Background(), "question", "")

	require.Error(t, err)
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTranslateNoBackendConfigured(t *testing.T) {
	a := NewAdapter("", 5*time.Second, nil, "", zap.NewNop())
	_, err := a.Translate(context.Background(), "question", "")
	require.Error(t, err)
}
