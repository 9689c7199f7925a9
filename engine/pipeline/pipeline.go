// Package pipeline orchestrates adverse-drug-reaction extraction. It loads
// the labeled corpus into the example store, then serves documents from a
// source: normalize, retrieve similar examples, build a few-shot prompt,
// invoke the model, and repair its reply into a complete record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medsift/adr-engine/engine/corpus"
	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/engine/extract"
	"github.com/medsift/adr-engine/engine/prompt"
	"github.com/medsift/adr-engine/engine/sink"
	"github.com/medsift/adr-engine/engine/source"
	"github.com/medsift/adr-engine/engine/textnorm"
	"github.com/medsift/adr-engine/pkg/fn"
	"github.com/medsift/adr-engine/pkg/metrics"
	"github.com/medsift/adr-engine/pkg/resilience"
)

// ErrNoRelevantData signals that retrieval produced no examples for a
// document, so no extraction can be attempted.
var ErrNoRelevantData = errors.New("no relevant data found")

// ErrEmptyDocument signals a document that normalized to nothing.
var ErrEmptyDocument = errors.New("empty document")

// Examples abstracts the example store.
type Examples interface {
	Load(ctx context.Context, records []domain.ExampleRecord) (int, error)
	Query(ctx context.Context, text string, topK int) ([]domain.Match, error)
}

// Generator abstracts the chat model.
type Generator interface {
	Chat(ctx context.Context, system, user string, stream bool) (string, error)
}

// Options configures the extraction pipeline.
type Options struct {
	// TopK is how many examples back each prompt.
	TopK int
	// MaxDocLength caps normalized document length in runes.
	MaxDocLength int
	// Streaming selects the model's streaming reply mode.
	Streaming bool
	// Retry governs model invocation retries.
	Retry fn.RetryOpts
}

// DefaultOptions returns the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{
		TopK:         2,
		MaxDocLength: 2000,
		Streaming:    true,
		Retry:        fn.DefaultRetry,
	}
}

// Service runs the extraction pipeline. Documents are processed strictly one
// at a time in source order.
type Service struct {
	src      source.Source
	examples Examples
	gen      Generator
	out      sink.Sink
	breaker  *resilience.Breaker
	opts     Options
	logger   *slog.Logger

	docsTotal    *metrics.Counter
	skipsTotal   *metrics.Counter
	procFailures *metrics.Counter
	fallbacks    *metrics.Counter
	procDuration *metrics.Histogram
	lastDoc      *metrics.Gauge
}

// New creates a Service. reg may be nil to disable metrics.
func New(src source.Source, examples Examples, gen Generator, out sink.Sink, opts Options, logger *slog.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK < 1 {
		opts.TopK = 1
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Service{
		src:      src,
		examples: examples,
		gen:      gen,
		out:      out,
		breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		opts:     opts,
		logger:   logger,

		docsTotal:    reg.Counter("extract_documents_total", "Documents consumed from the source"),
		skipsTotal:   reg.Counter("extract_skips_total", "Documents skipped before generation"),
		procFailures: reg.Counter("extract_processing_failures_total", "Documents whose processing failed after retries"),
		fallbacks:    reg.Counter("extract_fallback_records_total", "Records produced via the fallback path"),
		procDuration: reg.Histogram("extract_document_duration_seconds", "Per-document pipeline time", nil),
		lastDoc:      reg.Gauge("extract_last_document_unixtime", "Epoch of the last document consumed"),
	}
}

// LoadCorpus reads the labeled CSV at path and replaces the example store
// contents with it. Any failure here is fatal to the pipeline: serving
// without a loaded store would retrieve stale or missing examples.
func (s *Service) LoadCorpus(ctx context.Context, path string) error {
	records, err := corpus.Load(path)
	if err != nil {
		return fmt.Errorf("pipeline: load corpus: %w", err)
	}
	n, err := s.examples.Load(ctx, records)
	if err != nil {
		return fmt.Errorf("pipeline: index corpus: %w", err)
	}
	s.logger.Info("corpus loaded", "records", n)
	return nil
}

// docState carries one document through the stages.
type docState struct {
	Raw        string
	Normalized string
	Matches    []domain.Match
	Prompt     string
	Response   string
	Record     domain.Record
}

// ProcessOne runs the full extraction for a single raw document. It returns
// ErrEmptyDocument or ErrNoRelevantData when the document cannot be
// processed; a model reply, however malformed, always yields a complete
// record.
func (s *Service) ProcessOne(ctx context.Context, raw string) (domain.Record, error) {
	stages := fn.Then(
		fn.TracedStage("pipeline.prepare", s.prepareStage()),
		fn.Then(
			fn.TracedStage("pipeline.retrieve", s.retrieveStage()),
			fn.Then(
				fn.TracedStage("pipeline.generate", s.generateStage()),
				fn.TracedStage("pipeline.repair", s.repairStage()),
			),
		),
	)

	result := stages(ctx, docState{Raw: raw})
	state, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	return state.Record, nil
}

// prepareStage normalizes the document and rejects empty input.
func (s *Service) prepareStage() fn.Stage[docState, docState] {
	return func(_ context.Context, st docState) fn.Result[docState] {
		st.Normalized = textnorm.Normalize(st.Raw, s.opts.MaxDocLength)
		if strings.TrimSpace(st.Normalized) == "" {
			return fn.Err[docState](ErrEmptyDocument)
		}
		return fn.Ok(st)
	}
}

// retrieveStage queries the example store and builds the few-shot prompt.
func (s *Service) retrieveStage() fn.Stage[docState, docState] {
	return func(ctx context.Context, st docState) fn.Result[docState] {
		matches, err := s.examples.Query(ctx, st.Normalized, s.opts.TopK)
		if err != nil {
			return fn.Errf[docState]("pipeline: retrieve: %w", err)
		}
		if len(matches) == 0 {
			return fn.Err[docState](ErrNoRelevantData)
		}
		st.Matches = matches
		st.Prompt = prompt.Build(matches)
		return fn.Ok(st)
	}
}

// generateStage invokes the model with retries behind the circuit breaker.
func (s *Service) generateStage() fn.Stage[docState, docState] {
	call := func(ctx context.Context, st docState) fn.Result[docState] {
		reply, err := s.gen.Chat(ctx, st.Prompt, st.Normalized, s.opts.Streaming)
		if err != nil {
			return fn.Errf[docState]("pipeline: generate: %w", err)
		}
		st.Response = reply
		return fn.Ok(st)
	}
	return resilience.BreakerStage(s.breaker, fn.RetryStage(s.opts.Retry, call))
}

// repairStage turns the raw model reply into a complete record. This stage
// cannot fail: unparsable replies produce the fallback record.
func (s *Service) repairStage() fn.Stage[docState, docState] {
	return func(_ context.Context, st docState) fn.Result[docState] {
		s.logger.Info("model reply", "len", len(st.Response))
		s.logger.Debug("model reply body", "response", st.Response)

		rec, fellBack := extract.Extract(st.Response, st.Raw, st.Normalized)
		if fellBack {
			s.fallbacks.Inc()
			s.logger.Warn("model reply unparsable, fallback record emitted")
		}
		st.Record = rec
		if err := domain.ValidateRecord(st.Record); err != nil {
			s.logger.Warn("record failed schema validation", "err", err)
		}
		return fn.Ok(st)
	}
}

// Run consumes the source until it is exhausted or ctx is cancelled.
// Per-document failures are logged and skipped; only source exhaustion,
// context cancellation, or a source error end the loop.
func (s *Service) Run(ctx context.Context) error {
	for {
		raw, err := s.src.Next(ctx)
		switch {
		case errors.Is(err, source.ErrExhausted):
			s.logger.Info("source exhausted, stopping")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			return fmt.Errorf("pipeline: source: %w", err)
		}
		s.docsTotal.Inc()
		s.lastDoc.Set(time.Now().Unix())

		start := time.Now()
		rec, err := s.ProcessOne(ctx, raw)
		s.procDuration.Since(start)
		switch {
		case errors.Is(err, ErrEmptyDocument):
			s.skipsTotal.Inc()
			s.logger.Warn("skipping empty document")
			continue
		case errors.Is(err, ErrNoRelevantData):
			s.skipsTotal.Inc()
			s.logger.Warn("no relevant data found, skipping document")
			continue
		case err != nil:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			s.procFailures.Inc()
			s.logger.Error("document processing failed, skipping", "err", err)
			continue
		}

		if err := s.out.Write(ctx, rec); err != nil {
			s.logger.Error("sink write failed", "err", err)
		}
	}
}
