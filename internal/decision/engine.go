// Package decision determines whether a question needs post-hoc numeric
// analytics and which kind.
package decision

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Source string

const (
	SourceExternal  Source = "external"
	SourceHeuristic Source = "heuristic"
)

// Decision is the analytics verdict for one question.
type Decision struct {
	Perform              bool      `json:"perform"`
	AnalyticsType        string    `json:"analytics_type,omitempty"`
	Source               Source    `json:"source"`
	SuppressedByKeywords bool      `json:"suppressed_by_keywords"`
	DecidedAt            time.Time `json:"decided_at"`
}

// CapabilityChecker is satisfied by the capability registry.
type CapabilityChecker interface {
	Supported(ctx context.Context, analyticsType string) bool
}

type Engine struct {
	classifier Classifier
	caps       CapabilityChecker
	logger     *zap.Logger
}

func NewEngine(classifier Classifier, caps CapabilityChecker, logger *zap.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		caps:       caps,
		logger:     logger.Named("decision"),
	}
}

// Decide runs the documented algorithm: keyword suppression first, then the
// external classifier, then the keyword-group fallback, with the resulting
// type validated against the capability registry snapshot.
func (e *Engine) Decide(ctx context.Context, question string, now time.Time) Decision {
	if matchesSuppression(question) {
		e.logger.Debug("analytics suppressed by structural keywords")
		return Decision{
			Perform:              false,
			Source:               SourceHeuristic,
			SuppressedByKeywords: true,
			DecidedAt:            now,
		}
	}

	d := Decision{Source: SourceExternal, DecidedAt: now}
	perform, analyticsType, err := e.classifier.Classify(ctx, question)
	if err != nil {
		if !errors.Is(err, ErrServiceUnavailable) {
			e.logger.Warn("decision service failed", zap.Error(err))
		} else {
			e.logger.Warn("decision service unavailable, using keyword heuristic", zap.Error(err))
		}
		d.Source = SourceHeuristic
		d.Perform = true
		d.AnalyticsType = fallbackType(question)
	} else {
		d.Perform = perform
		d.AnalyticsType = analyticsType
	}

	if !d.Perform {
		d.AnalyticsType = ""
		return d
	}

	if !e.caps.Supported(ctx, d.AnalyticsType) {
		e.logger.Warn("unsupported analytics type, re-resolving via keyword heuristic",
			zap.String("analytics_type", d.AnalyticsType))
		d.AnalyticsType = fallbackType(question)
		d.Source = SourceHeuristic
	}

	return d
}

// Revalidate re-checks a persisted decision against the current capability
// snapshot; a follow-up invocation must not trust stale state blindly.
func (e *Engine) Revalidate(ctx context.Context, d Decision, question string) Decision {
	if !d.Perform {
		return d
	}
	if e.caps.Supported(ctx, d.AnalyticsType) {
		return d
	}
	e.logger.Warn("persisted analytics type no longer supported, re-resolving",
		zap.String("analytics_type", d.AnalyticsType))
	d.AnalyticsType = fallbackType(question)
	d.Source = SourceHeuristic
	return d
}
