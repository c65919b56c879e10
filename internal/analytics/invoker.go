package analytics

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
)

// ServiceError is non-fatal: the pipeline degrades to telemetry-only
// summarization.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string { return fmt.Sprintf("analytics service failed: %v", e.Err) }
func (e *ServiceError) Unwrap() error { return e.Err }

// Invoker posts the shaped payload to the remote execution service.
type Invoker struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func NewInvoker(endpoint string, timeout time.Duration, logger *zap.Logger) *Invoker {
	return &Invoker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.Named("analytics"),
	}
}

// Enabled reports whether an execution endpoint is configured; when it is
// not, the invocation stage is skipped entirely.
func (i *Invoker) Enabled() bool { return i.endpoint != "" }

type runResponse struct {
	Results json.RawMessage `json:"results"`
}

func (i *Invoker) Run(ctx context.Context, p Payload) (json.RawMessage, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Err: fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))}
	}

	var parsed runResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ServiceError{Err: fmt.Errorf("malformed response: %w", err)}
	}

	i.logger.Debug("analytics executed", zap.String("analysis_type", p.AnalysisType))
	return parsed.Results, nil
}
