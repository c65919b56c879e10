// Package pipeline sequences the twelve stages that turn a free-text sensor
// question into an answer: mention resolution, translation (with its single
// casing retry), graph execution, reference extraction, the analytics
// decision, window normalization, telemetry fetch, payload shaping, optional
// analytics invocation, identifier rewriting, summarization and artifact
// persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/analytics"
	"github.com/bldgsense/sensoria/internal/artifact"
	"github.com/bldgsense/sensoria/internal/decision"
	"github.com/bldgsense/sensoria/internal/kg"
	"github.com/bldgsense/sensoria/internal/metrics"
	"github.com/bldgsense/sensoria/internal/resolve"
	"github.com/bldgsense/sensoria/internal/session"
	"github.com/bldgsense/sensoria/internal/summary"
	"github.com/bldgsense/sensoria/internal/telemetry"
	"github.com/bldgsense/sensoria/internal/timerange"
	"github.com/bldgsense/sensoria/internal/translate"
)

const noSummaryAnswer = "no summary available"

// Collaborator contracts, narrow so tests can fake them.

type Resolver interface {
	Resolve(question string, registry []string) ([]resolve.Mention, string)
}

type Translator interface {
	Translate(ctx context.Context, question, entity string) (translate.Result, error)
}

type Decider interface {
	Decide(ctx context.Context, question string, now time.Time) decision.Decision
	Revalidate(ctx context.Context, d decision.Decision, question string) decision.Decision
}

type TelemetryFetcher interface {
	Fetch(ctx context.Context, seriesIDs []string, w timerange.Window) (map[string][]telemetry.Point, error)
}

type AnalyticsRunner interface {
	Enabled() bool
	Run(ctx context.Context, p analytics.Payload) (json.RawMessage, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, req summary.Request) (string, error)
}

type SensorRegistry interface {
	Snapshot(ctx context.Context) []string
}

type Pipeline struct {
	Resolver       Resolver
	Translator     Translator
	Store          kg.Store
	Sensors        SensorRegistry
	Engine         Decider
	Fetcher        TelemetryFetcher
	Invoker        AnalyticsRunner
	Summarizer     Summarizer
	Sessions       session.Store
	Artifacts      *artifact.Store
	Logger         *zap.Logger
	SummaryTimeout time.Duration

	// Now is the request clock; tests pin it.
	Now func() time.Time
}

type Request struct {
	SessionID string
	Question  string
	Start     string
	End       string
	Verbose   bool
}

type Response struct {
	SessionID  string              `json:"session_id"`
	Answer     string              `json:"answer"`
	Mode       summary.Mode        `json:"mode,omitempty"`
	Decision   *decision.Decision  `json:"decision,omitempty"`
	Retried    bool                `json:"retried"`
	NeedsDates bool                `json:"needs_dates"`
	Events     []string            `json:"events,omitempty"`
	Artifacts  []artifact.Artifact `json:"artifacts,omitempty"`
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// Ask runs the pipeline for one request. Advisory-stage failures degrade;
// graph execution and (when required) telemetry fetch failures return an
// error.
func (p *Pipeline) Ask(ctx context.Context, req Request) (*Response, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	logger := p.Logger.With(zap.String("session_id", req.SessionID))
	gate := artifact.NewGate(req.Verbose)
	now := p.now()

	// A session waiting on dates resumes with its stored decision instead
	// of re-deciding from scratch.
	if state, err := p.Sessions.Load(ctx, req.SessionID); err == nil && state != nil &&
		state.AwaitingDates && (req.Start != "" || req.End != "") {
		return p.resume(ctx, req, state, gate, logger, now)
	} else if err != nil {
		logger.Warn("session state load failed", zap.Error(err))
	}

	// 1. Resolve sensor mentions.
	registrySnapshot := p.Sensors.Snapshot(ctx)
	mentions, rewritten := p.Resolver.Resolve(req.Question, registrySnapshot)
	entity := singleEntity(mentions)
	gate.Detail(fmt.Sprintf("resolved %d sensor mention(s)", len(mentions)))
	metrics.ObserveStage("resolve", metrics.OutcomeOK)

	// 2. Translate.
	tr, err := p.Translator.Translate(ctx, rewritten, entity)
	if err != nil {
		metrics.ObserveStage("translate", metrics.OutcomeError)
		return nil, err
	}
	metrics.ObserveStage("translate", metrics.OutcomeOK)

	// 3. Execute, with the single bounded casing retry.
	records, retried, err := p.execute(ctx, tr.Query, gate, logger)
	if err != nil {
		metrics.ObserveStage("execute", metrics.OutcomeError)
		return nil, err
	}
	tr.Retried = retried
	metrics.ObserveStage("execute", metrics.OutcomeOK)

	resp := &Response{SessionID: req.SessionID, Retried: tr.Retried}
	p.persist(resp, req.SessionID, "bindings", records, logger)

	// 4. Extract timeseries references.
	refs := kg.ExtractReferences(records)
	gate.Detail(fmt.Sprintf("extracted %d timeseries reference(s)", len(refs)))

	// 5. No references means the answer comes from the ontology alone.
	if len(refs) == 0 {
		d := decision.Decision{Perform: false, Source: decision.SourceHeuristic, DecidedAt: now}
		resp.Decision = &d
		p.saveState(ctx, &session.State{SessionID: req.SessionID, Question: req.Question, Decision: &d}, logger)
		p.answer(ctx, resp, req.SessionID, summary.OntologyOnly{Question: rewritten, Records: records}, gate, logger)
		resp.Events = gate.Visible()
		return resp, nil
	}

	// 6. Decide on analytics.
	d := p.Engine.Decide(ctx, req.Question, now)
	resp.Decision = &d
	if d.Source == decision.SourceHeuristic && !d.SuppressedByKeywords {
		metrics.ObserveStage("decision", metrics.OutcomeFallback)
	} else {
		metrics.ObserveStage("decision", metrics.OutcomeOK)
	}
	p.saveState(ctx, &session.State{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Decision:   &d,
		References: refs,
	}, logger)

	if !d.Perform {
		// Analytics short-circuit: summarize the rewritten bindings.
		result := p.rewriteRecords(records, refs, logger)
		p.answer(ctx, resp, req.SessionID, summary.Enriched{Question: req.Question, Result: result}, gate, logger)
		resp.Events = gate.Visible()
		return resp, nil
	}

	return p.runAnalytics(ctx, req, resp, d, refs, gate, logger, now)
}

// resume continues a session that was waiting for dates. The persisted
// decision is re-validated rather than trusted blindly.
func (p *Pipeline) resume(ctx context.Context, req Request, state *session.State, gate *artifact.Gate, logger *zap.Logger, now time.Time) (*Response, error) {
	logger.Info("resuming session awaiting dates")
	if state.Decision == nil || !state.Decision.Perform || len(state.References) == 0 {
		// Nothing to resume into; fall through to a fresh run.
		state.AwaitingDates = false
		p.saveState(ctx, state, logger)
		return p.Ask(ctx, Request{SessionID: req.SessionID, Question: state.Question, Start: req.Start, End: req.End, Verbose: req.Verbose})
	}

	d := p.Engine.Revalidate(ctx, *state.Decision, state.Question)
	resp := &Response{SessionID: req.SessionID, Decision: &d}
	followUp := req
	followUp.Question = state.Question
	return p.runAnalytics(ctx, followUp, resp, d, state.References, gate, logger, now)
}

// runAnalytics is stages 6-12 once analytics is confirmed.
func (p *Pipeline) runAnalytics(ctx context.Context, req Request, resp *Response, d decision.Decision, refs []kg.TimeseriesReference, gate *artifact.Gate, logger *zap.Logger, now time.Time) (*Response, error) {
	// 7. Normalize the date window.
	window, err := timerange.Normalize(req.Start, req.End, req.Question, now)
	if errors.Is(err, timerange.ErrInvalidWindow) {
		gate.User("The supplied date range is invalid: the start must be before the end. Please resupply the dates.")
		p.saveState(ctx, &session.State{
			SessionID:     req.SessionID,
			Question:      req.Question,
			Decision:      &d,
			References:    refs,
			AwaitingDates: true,
		}, logger)
		resp.NeedsDates = true
		resp.Answer = "Please provide a valid start and end date."
		resp.Events = gate.Visible()
		metrics.ObserveStage("timerange", metrics.OutcomeError)
		return resp, nil
	}
	gate.Detail(fmt.Sprintf("query window %s to %s", window.StartString(), window.EndString()))
	metrics.ObserveStage("timerange", metrics.OutcomeOK)

	// 8. Fetch telemetry. Fatal on failure, reported verbatim.
	seriesIDs := seriesIdentifiers(refs)
	series, err := p.Fetcher.Fetch(ctx, seriesIDs, window)
	if err != nil {
		metrics.ObserveStage("telemetry", metrics.OutcomeError)
		return nil, err
	}
	metrics.ObserveStage("telemetry", metrics.OutcomeOK)
	p.persist(resp, req.SessionID, "telemetry", series, logger)

	// 9. Shape the payload.
	sensorBySeries := make(map[string]string, len(refs))
	for _, r := range refs {
		sensorBySeries[r.SeriesID] = r.SensorID
	}
	payload := analytics.BuildPayload(d.AnalyticsType, series, sensorBySeries)
	p.persist(resp, req.SessionID, "payload", payload, logger)
	gate.Detail(fmt.Sprintf("shaped %s payload for %s", payload.Shape, d.AnalyticsType))

	// 10. Optionally invoke the analytics service.
	var result []byte
	var note string
	switch {
	case !p.Invoker.Enabled():
		metrics.ObserveStage("analytics", metrics.OutcomeSkipped)
		result, _ = json.Marshal(payload)
	default:
		res, err := p.Invoker.Run(ctx, payload)
		if err != nil {
			logger.Warn("analytics invocation failed, degrading to telemetry only", zap.Error(err))
			gate.User("analytics service failed; answering from raw telemetry")
			metrics.ObserveStage("analytics", metrics.OutcomeFallback)
			note = "Analytics execution was unavailable; the data below is raw telemetry."
			result, _ = json.Marshal(payload)
		} else {
			metrics.ObserveStage("analytics", metrics.OutcomeOK)
			result = res
		}
	}

	// 11. Replace opaque identifiers with sensor names.
	rewrittenResult := summary.RewriteIdentifiers(string(result), sensorBySeries, logger)

	// 12. Summarize.
	p.answer(ctx, resp, req.SessionID, summary.Enriched{Question: req.Question, Result: rewrittenResult, Note: note}, gate, logger)

	p.saveState(ctx, &session.State{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Decision:   &d,
		References: refs,
	}, logger)
	resp.Events = gate.Visible()
	return resp, nil
}

// execute runs the finalized query; on zero rows with the known lowercased
// naming pattern present it normalizes the casing and re-executes exactly
// once. A failing or still-empty retry leaves the original empty result
// final.
func (p *Pipeline) execute(ctx context.Context, query string, gate *artifact.Gate, logger *zap.Logger) ([]kg.BindingRecord, bool, error) {
	finalized := kg.InjectPrefixes(query)
	records, err := p.Store.Select(ctx, finalized)
	if err != nil {
		return nil, false, err
	}
	if len(records) > 0 || !translate.NeedsCaseRetry(finalized) {
		gate.Detail(fmt.Sprintf("graph query returned %d record(s)", len(records)))
		return records, false, nil
	}

	logger.Info("zero results with lowercased local names, retrying with normalized casing")
	gate.Detail("retrying query with normalized entity casing")
	retryRecords, retryErr := p.Store.Select(ctx, translate.NormalizeLocalNames(finalized))
	if retryErr != nil {
		logger.Warn("casing retry failed, keeping original empty result", zap.Error(retryErr))
		return records, true, nil
	}
	gate.Detail(fmt.Sprintf("graph query returned %d record(s)", len(retryRecords)))
	return retryRecords, true, nil
}

// answer drives the summarizer and absorbs its failure into an explicit
// degraded answer.
func (p *Pipeline) answer(ctx context.Context, resp *Response, sessionID string, req summary.Request, gate *artifact.Gate, logger *zap.Logger) {
	timeout := p.SummaryTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp.Mode = req.Mode()
	answer, err := p.Summarizer.Summarize(sctx, req)
	if err != nil {
		logger.Warn("summarization failed", zap.Error(err))
		gate.User("summarization failed; structured results remain available")
		metrics.ObserveStage("summary", metrics.OutcomeError)
		resp.Answer = noSummaryAnswer
	} else {
		metrics.ObserveStage("summary", metrics.OutcomeOK)
		resp.Answer = answer
		gate.User(answer)
	}
	p.persist(resp, sessionID, "summary", map[string]string{"mode": string(req.Mode()), "answer": resp.Answer}, logger)
}

// persist writes a stage artifact; persistence trouble is logged, never
// fatal.
func (p *Pipeline) persist(resp *Response, sessionID, kind string, v interface{}, logger *zap.Logger) {
	a, err := p.Artifacts.Write(sessionID, kind, v)
	if err != nil {
		logger.Warn("artifact write failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	resp.Artifacts = append(resp.Artifacts, a)
}

func (p *Pipeline) saveState(ctx context.Context, state *session.State, logger *zap.Logger) {
	if err := p.Sessions.Save(ctx, state); err != nil {
		logger.Warn("session state save failed", zap.Error(err))
	}
}

// rewriteRecords renders binding records with series ids replaced by sensor
// names, for the no-analytics enriched path.
func (p *Pipeline) rewriteRecords(records []kg.BindingRecord, refs []kg.TimeseriesReference, logger *zap.Logger) string {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return ""
	}
	names := make(map[string]string, len(refs))
	for _, r := range refs {
		names[r.SeriesID] = r.SensorID
	}
	return summary.RewriteIdentifiers(string(data), names, logger)
}

func singleEntity(mentions []resolve.Mention) string {
	var matched []string
	for _, m := range mentions {
		if m.Kind != resolve.MatchUnmatched {
			matched = append(matched, m.CanonicalID)
		}
	}
	if len(matched) == 1 {
		return matched[0]
	}
	return ""
}

func seriesIdentifiers(refs []kg.TimeseriesReference) []string {
	set := make(map[string]bool, len(refs))
	var out []string
	for _, r := range refs {
		if !set[r.SeriesID] {
			set[r.SeriesID] = true
			out = append(out, r.SeriesID)
		}
	}
	sort.Strings(out)
	return out
}
