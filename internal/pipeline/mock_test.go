package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bldgsense/sensoria/internal/analytics"
	"github.com/bldgsense/sensoria/internal/kg"
	"github.com/bldgsense/sensoria/internal/session"
	"github.com/bldgsense/sensoria/internal/summary"
	"github.com/bldgsense/sensoria/internal/telemetry"
	"github.com/bldgsense/sensoria/internal/timerange"
	"github.com/bldgsense/sensoria/internal/translate"
)

type fakeStore struct {
	// results are popped one slice per Select call; a missing slice means
	// an empty result.
	results [][]kg.BindingRecord
	err     error
	queries []string
}

func (f *fakeStore) Select(ctx context.Context, query string) ([]kg.BindingRecord, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	head := f.results[0]
	f.results = f.results[1:]
	return head, nil
}

func (f *fakeStore) ListSensorNames(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) Close(ctx context.Context) error                      { return nil }

type fakeTranslator struct {
	query       string
	err         error
	gotQuestion string
	gotEntity   string
}

func (f *fakeTranslator) Translate(ctx context.Context, question, entity string) (translate.Result, error) {
	f.gotQuestion = question
	f.gotEntity = entity
	if f.err != nil {
		return translate.Result{}, f.err
	}
	return translate.Result{Query: f.query, SourceEntity: entity}, nil
}

type fakeRegistry struct {
	names []string
}

func (f *fakeRegistry) Snapshot(ctx context.Context) []string { return f.names }

type fakeFetcher struct {
	series    map[string][]telemetry.Point
	err       error
	gotIDs    []string
	gotWindow timerange.Window
	calls     int
}

func (f *fakeFetcher) Fetch(ctx context.Context, seriesIDs []string, w timerange.Window) (map[string][]telemetry.Point, error) {
	f.calls++
	f.gotIDs = seriesIDs
	f.gotWindow = w
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

type fakeInvoker struct {
	enabled  bool
	result   json.RawMessage
	err      error
	payloads []analytics.Payload
}

func (f *fakeInvoker) Enabled() bool { return f.enabled }

func (f *fakeInvoker) Run(ctx context.Context, p analytics.Payload) (json.RawMessage, error) {
	f.payloads = append(f.payloads, p)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSummarizer struct {
	answer string
	err    error
	reqs   []summary.Request
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req summary.Request) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type memSessions struct {
	states map[string]*session.State
}

func newMemSessions() *memSessions {
	return &memSessions{states: make(map[string]*session.State)}
}

func (m *memSessions) Load(ctx context.Context, sessionID string) (*session.State, error) {
	return m.states[sessionID], nil
}

func (m *memSessions) Save(ctx context.Context, state *session.State) error {
	st := *state
	st.UpdatedAt = time.Now().UTC()
	m.states[state.SessionID] = &st
	return nil
}

func (m *memSessions) Clear(ctx context.Context, sessionID string) error {
	delete(m.states, sessionID)
	return nil
}

type stubClassifier struct {
	perform       bool
	analyticsType string
	err           error
	calls         int
}

func (s *stubClassifier) Classify(ctx context.Context, question string) (bool, string, error) {
	s.calls++
	if s.err != nil {
		return false, "", s.err
	}
	return s.perform, s.analyticsType, nil
}

type stubCaps struct {
	supported map[string]bool
}

func (s stubCaps) Supported(ctx context.Context, t string) bool { return s.supported[t] }
