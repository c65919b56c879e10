package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/config"
	"github.com/bldgsense/sensoria/internal/llm"
)

// Failure is non-fatal: the caller substitutes an explicit "no summary
// available" answer and keeps the structured data.
type Failure struct {
	Err error
}

func (e *Failure) Error() string { return fmt.Sprintf("summarization failed: %v", e.Err) }
func (e *Failure) Unwrap() error { return e.Err }

type Summarizer struct {
	llm     llm.Client
	prompts config.SummaryPrompts
	logger  *zap.Logger
}

func NewSummarizer(llmClient llm.Client, prompts config.SummaryPrompts, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		llm:     llmClient,
		prompts: prompts,
		logger:  logger.Named("summary"),
	}
}

const defaultOntologyPrompt = `Answer the question below using only the query results.
Be concise and do not invent values that are not present.

Question: %s

Results:
%s

Respond with JSON: {"summary": "..."}`

const defaultEnrichedPrompt = `Answer the question below using the analytics result.
Refer to sensors by the names that appear in the result.

Question: %s

Result:
%s

Respond with JSON: {"summary": "..."}`

type summaryText struct {
	Summary string `json:"summary"`
}

func (s *Summarizer) Summarize(ctx context.Context, req Request) (string, error) {
	prompt, err := s.buildPrompt(req)
	if err != nil {
		return "", &Failure{Err: err}
	}

	response, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return "", &Failure{Err: err}
	}

	// Models don't always honor the JSON instruction; the raw text is
	// still a usable answer.
	if parsed, err := ParseJSON[summaryText](response); err == nil && parsed.Summary != "" {
		return parsed.Summary, nil
	}
	return strings.TrimSpace(response), nil
}

func (s *Summarizer) buildPrompt(req Request) (string, error) {
	switch r := req.(type) {
	case OntologyOnly:
		tmpl := s.prompts.Ontology
		if tmpl == "" {
			tmpl = defaultOntologyPrompt
		}
		records, err := json.MarshalIndent(r.Records, "", "  ")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(tmpl, r.Question, string(records)), nil

	case Enriched:
		tmpl := s.prompts.Enriched
		if tmpl == "" {
			tmpl = defaultEnrichedPrompt
		}
		result := r.Result
		if r.Note != "" {
			result = r.Note + "\n\n" + result
		}
		return fmt.Sprintf(tmpl, r.Question, result), nil

	default:
		return "", fmt.Errorf("unknown summary request type %T", req)
	}
}
