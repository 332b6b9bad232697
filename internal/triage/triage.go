// Package triage sequences the analysis pipeline for one support
// issue: fetch tracked events, narrate them, gather the knowledge
// documents, and ask the analyzer for ranked causes.
package triage

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/sentry"
)

const defaultWindowMinutes = 5

// Request is one support issue to triage.
type Request struct {
	Description string
	Timestamp   string
	CustomerID  string
}

// Result is the assembled answer for one request. Causes and the logs
// summary come from the analyzer; links and the event count come from
// the raw event list, independent of the analyzer.
type Result struct {
	Success           bool             `json:"success"`
	Causes            []analyzer.Cause `json:"causes"`
	SuggestedResponse string           `json:"suggested_response"`
	SentryLinks       []string         `json:"sentry_links"`
	LogsSummary       string           `json:"logs_summary"`
	EventsFound       int              `json:"events_found"`
}

// EventStore fetches raw events around a timestamp for a customer.
type EventStore interface {
	FetchEvents(ctx context.Context, customerID, timestamp string, windowMinutes int) ([]sentry.Event, error)
}

// CauseAnalyzer turns narrated evidence into ranked causes.
type CauseAnalyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Result, error)
}

// DocsProvider supplies the two knowledge documents. It never fails;
// missing documents come back as placeholders.
type DocsProvider interface {
	Docs() (workflow, knownErrors string)
}

// ServiceConfig wires the pipeline stages together.
type ServiceConfig struct {
	Store         EventStore
	Narrator      *sentry.Narrator
	Analyzer      CauseAnalyzer
	Docs          DocsProvider
	WindowMinutes int
	Tracer        trace.Tracer
}

// Service runs the triage pipeline.
type Service struct {
	store         EventStore
	narrator      *sentry.Narrator
	analyzer      CauseAnalyzer
	docs          DocsProvider
	windowMinutes int
	tracer        trace.Tracer
	logger        *logging.Logger
}

// NewService creates the orchestrator.
func NewService(cfg ServiceConfig) *Service {
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = defaultWindowMinutes
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("loglens/triage")
	}
	return &Service{
		store:         cfg.Store,
		narrator:      cfg.Narrator,
		analyzer:      cfg.Analyzer,
		docs:          cfg.Docs,
		windowMinutes: cfg.WindowMinutes,
		tracer:        cfg.Tracer,
		logger:        logging.GetLogger("triage"),
	}
}

// Analyze runs the pipeline for one request.
//
// Failure policy: invalid timestamps, tracking-service auth failures,
// and rate limits abort the request, as does any analyzer error. Every
// other tracking-service failure degrades to an empty event list so
// the analysis still runs on the problem description alone.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	s.logger.Info("Analyzing issue for customer %s", req.CustomerID)

	events, err := s.fetchEvents(ctx, req)
	if err != nil {
		return nil, err
	}

	links := s.narrator.Links(events)
	narrated := s.narrator.Narrate(events)

	workflow, knownErrors := s.docs.Docs()

	analysis, err := s.analyze(ctx, req, narrated, workflow, knownErrors)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:           true,
		Causes:            analysis.Causes,
		SuggestedResponse: analysis.SuggestedResponse,
		SentryLinks:       links,
		LogsSummary:       analysis.LogsSummary,
		EventsFound:       len(events),
	}, nil
}

// fetchEvents runs the event fetch stage. A nil error with a nil event
// list means the fetch failed in a degradable way and the pipeline
// continues without events.
func (s *Service) fetchEvents(ctx context.Context, req Request) ([]sentry.Event, error) {
	ctx, span := s.tracer.Start(ctx, "triage.fetch_events",
		trace.WithAttributes(attribute.String("customer.id", req.CustomerID)),
	)
	defer span.End()

	events, err := s.store.FetchEvents(ctx, req.CustomerID, req.Timestamp, s.windowMinutes)
	if err == nil {
		span.SetAttributes(attribute.Int("sentry.events_found", len(events)))
		return events, nil
	}

	span.RecordError(err)

	var tsErr *sentry.InvalidTimestampError
	if errors.As(err, &tsErr) {
		span.SetStatus(codes.Error, "invalid timestamp")
		return nil, err
	}

	var sentryErr *sentry.Error
	if errors.As(err, &sentryErr) {
		switch sentryErr.Kind {
		case sentry.KindAuth:
			span.SetStatus(codes.Error, "Sentry authentication failed")
			s.logger.Error("Sentry authentication failed")
			return nil, err
		case sentry.KindRateLimit:
			span.SetStatus(codes.Error, "Sentry rate limit exceeded")
			s.logger.Warn("Sentry rate limit exceeded: %v", err)
			return nil, err
		default:
			s.logger.Error("Sentry API error: %v", err)
			return nil, nil
		}
	}

	s.logger.Error("Unexpected error fetching Sentry events: %v", err)
	return nil, nil
}

func (s *Service) analyze(ctx context.Context, req Request, narrated, workflow, knownErrors string) (*analyzer.Result, error) {
	ctx, span := s.tracer.Start(ctx, "triage.analyze")
	defer span.End()

	result, err := s.analyzer.Analyze(ctx, analyzer.Request{
		Description:    req.Description,
		Timestamp:      req.Timestamp,
		CustomerID:     req.CustomerID,
		NarratedEvents: narrated,
		WorkflowDoc:    workflow,
		KnownErrorsDoc: knownErrors,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("analysis.causes", len(result.Causes)))
	return result, nil
}
