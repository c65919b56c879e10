package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrServiceUnavailable means the external classifier could not produce a
// usable answer. Non-fatal: the keyword heuristic takes over.
var ErrServiceUnavailable = errors.New("decision service unavailable")

// Classifier is the external decision-service contract.
type Classifier interface {
	Classify(ctx context.Context, question string) (perform bool, analyticsType string, err error)
}

// HTTPClassifier calls the remote decision service.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Question string `json:"question"`
}

type classifyResponse struct {
	PerformAnalytics *bool   `json:"perform_analytics"`
	Analytics        *string `json:"analytics"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, question string) (bool, string, error) {
	if c.endpoint == "" {
		return false, "", ErrServiceUnavailable
	}

	payload, err := json.Marshal(classifyRequest{Question: question})
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("%w: service returned %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, "", fmt.Errorf("%w: malformed response: %v", ErrServiceUnavailable, err)
	}

	// A usable answer needs a real bool and, when analytics is on, a
	// non-empty type.
	if parsed.PerformAnalytics == nil {
		return false, "", fmt.Errorf("%w: response missing perform_analytics", ErrServiceUnavailable)
	}
	if *parsed.PerformAnalytics && (parsed.Analytics == nil || *parsed.Analytics == "") {
		return false, "", fmt.Errorf("%w: perform requested without an analytics type", ErrServiceUnavailable)
	}

	analyticsType := ""
	if parsed.Analytics != nil {
		analyticsType = *parsed.Analytics
	}
	return *parsed.PerformAnalytics, analyticsType, nil
}
