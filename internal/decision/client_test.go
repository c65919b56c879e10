package decision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Question)
		w.Write([]byte(response))
	}))
}

func TestClassifyPerform(t *testing.T) {
	srv := classifyServer(t, `{"perform_analytics": true, "analytics": "trend"}`)
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 5*time.Second)
	perform, analyticsType, err := c.Classify(context.Background(), "How did CO2 develop?")

	require.NoError(t, err)
	assert.True(t, perform)
	assert.Equal(t, "trend", analyticsType)
}

func TestClassifyDecline(t *testing.T) {
	srv := classifyServer(t, `{"perform_analytics": false}`)
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 5*time.Second)
	perform, analyticsType, err := c.Classify(context.Background(), "Which room is it in?")

	require.NoError(t, err)
	assert.False(t, perform)
	assert.Empty(t, analyticsType)
}

func TestClassifyUnusableResponses(t *testing.T) {
	cases := map[string]string{
		"missing perform flag":  `{"analytics": "trend"}`,
		"perform without type":  `{"perform_analytics": true}`,
		"perform with empty":    `{"perform_analytics": true, "analytics": ""}`,
		"not json":              `oops`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := classifyServer(t, body)
			defer srv.Close()

			c := NewHTTPClassifier(srv.URL, 5*time.Second)
			_, _, err := c.Classify(context.Background(), "question")
			assert.ErrorIs(t, err, ErrServiceUnavailable)
		})
	}
}

func TestClassifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, 5*time.Second)
	_, _, err := c.Classify(context.Background(), "question")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestClassifyNoEndpoint(t *testing.T) {
	c := NewHTTPClassifier("", 5*time.Second)
	_, _, err := c.Classify(context.Background(), "question")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}
