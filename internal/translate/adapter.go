// Package translate wraps the external NL-to-query service.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/llm"
)

// Result is one question's translation. Retried records whether the
// casing-normalization retry path fired, for observability and tests.
type Result struct {
	Query        string `json:"query_text"`
	SourceEntity string `json:"source_entity"`
	Retried      bool   `json:"retried"`
}

// Error reports a failed translation.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("query translation failed: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Adapter calls the translation endpoint when configured, and otherwise
// prompts the LLM with the configured template.
type Adapter struct {
	endpoint string
	client   *http.Client
	llm      llm.Client
	prompt   string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewAdapter(endpoint string, timeout time.Duration, llmClient llm.Client, prompt string, logger *zap.Logger) *Adapter {
	return &Adapter{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		llm:      llmClient,
		prompt:   prompt,
		timeout:  timeout,
		logger:   logger.Named("translate"),
	}
}

type translateRequest struct {
	Question string `json:"question"`
	Entity   string `json:"entity,omitempty"`
}

type translateResponse struct {
	Query string `json:"query"`
}

// Translate converts the rewritten question into query text. The service is
// called exactly once here; the single casing retry is the pipeline's call to
// make because it depends on the execution result.
func (a *Adapter) Translate(ctx context.Context, question, entity string) (Result, error) {
	// The provider clients set no deadline of their own; without this the
	// LLM fallback could hang the whole request.
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var query string
	var err error
	if a.endpoint != "" {
		query, err = a.translateRemote(ctx, question, entity)
	} else {
		query, err = a.translateLLM(ctx, question, entity)
	}
	if err != nil {
		return Result{}, &Error{Err: err}
	}

	query = cleanQuery(query)
	if query == "" {
		return Result{}, &Error{Err: fmt.Errorf("translator returned an empty query")}
	}

	a.logger.Debug("question translated", zap.String("entity", entity), zap.Int("query_len", len(query)))
	return Result{Query: query, SourceEntity: entity}, nil
}

func (a *Adapter) translateRemote(ctx context.Context, question, entity string) (string, error) {
	payload, err := json.Marshal(translateRequest{Question: question, Entity: entity})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed translation response: %w", err)
	}
	return parsed.Query, nil
}

func (a *Adapter) translateLLM(ctx context.Context, question, entity string) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("no translation endpoint configured and no llm client available")
	}
	prompt := a.prompt
	if prompt == "" {
		prompt = defaultTranslationPrompt
	}
	return a.llm.Generate(ctx, fmt.Sprintf(prompt, question, entity))
}

const defaultTranslationPrompt = `Translate the question below into a SPARQL SELECT query over the Brick building ontology.
Use the prefixes brick:, bldg:, ref:, rdf: and rdfs: without declaring them.
Return only the query text, no explanation.

Question: %s
Known entity: %s`

// cleanQuery strips markdown fences and surrounding whitespace from model
// output.
func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sparql")
		s = strings.TrimPrefix(s, "```cypher")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
