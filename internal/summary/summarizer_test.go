package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/config"
	"github.com/bldgsense/sensoria/internal/kg"
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

func ontologyRequest() OntologyOnly {
	rec := kg.NewBindingRecord()
	rec.Set("sensor", "CO2_Sensor_3")
	rec.Set("room", "Room_5")
	return OntologyOnly{Question: "Which room is CO2_Sensor_3 in?", Records: []kg.BindingRecord{rec}}
}

func TestSummarizeOntologyOnly(t *testing.T) {
	llm := &stubLLM{response: `{"summary": "CO2_Sensor_3 is in Room_5."}`}
	s := NewSummarizer(llm, config.SummaryPrompts{}, zap.NewNop())

	answer, err := s.Summarize(context.Background(), ontologyRequest())

	require.NoError(t, err)
	assert.Equal(t, "CO2_Sensor_3 is in Room_5.", answer)
	assert.Contains(t, llm.prompt, "Which room is CO2_Sensor_3 in?")
	assert.Contains(t, llm.prompt, "Room_5")
}

func TestSummarizeEnrichedIncludesNote(t *testing.T) {
	llm := &stubLLM{response: `{"summary": "CO2 rose slightly."}`}
	s := NewSummarizer(llm, config.SummaryPrompts{}, zap.NewNop())

	req := Enriched{
		Question: "How did CO2 develop?",
		Result:   `{"CO2_Sensor_3": [1, 2, 3]}`,
		Note:     "Analytics execution was unavailable; the data below is raw telemetry.",
	}
	answer, err := s.Summarize(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "CO2 rose slightly.", answer)
	assert.Contains(t, llm.prompt, req.Note)
	assert.Contains(t, llm.prompt, req.Result)
}

func TestSummarizeFallsBackToRawText(t *testing.T) {
	llm := &stubLLM{response: "  The readings look stable.  "}
	s := NewSummarizer(llm, config.SummaryPrompts{}, zap.NewNop())

	answer, err := s.Summarize(context.Background(), Enriched{Question: "q", Result: "{}"})

	require.NoError(t, err)
	assert.Equal(t, "The readings look stable.", answer)
}

func TestSummarizeLLMFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("model timeout")}
	s := NewSummarizer(llm, config.SummaryPrompts{}, zap.NewNop())

	_, err := s.Summarize(context.Background(), ontologyRequest())

	require.Error(t, err)
	var f *Failure
	assert.True(t, errors.As(err, &f))
}

func TestSummarizeCustomPrompts(t *testing.T) {
	llm := &stubLLM{response: `{"summary": "ok"}`}
	prompts := config.SummaryPrompts{Ontology: "CUSTOM %s %s"}
	s := NewSummarizer(llm, prompts, zap.NewNop())

	_, err := s.Summarize(context.Background(), ontologyRequest())

	require.NoError(t, err)
	assert.Contains(t, llm.prompt, "CUSTOM")
}

func TestRequestModes(t *testing.T) {
	assert.Equal(t, ModeOntologyOnly, OntologyOnly{}.Mode())
	assert.Equal(t, ModeEnriched, Enriched{}.Mode())
}
