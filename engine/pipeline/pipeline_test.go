package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/engine/source"
	"github.com/medsift/adr-engine/pkg/fn"
	"github.com/medsift/adr-engine/pkg/metrics"
)

type fakeExamples struct {
	matches  []domain.Match
	queryErr error
	loaded   []domain.ExampleRecord
	queries  []string
}

func (f *fakeExamples) Load(_ context.Context, records []domain.ExampleRecord) (int, error) {
	f.loaded = records
	return len(records), nil
}

func (f *fakeExamples) Query(_ context.Context, text string, topK int) ([]domain.Match, error) {
	f.queries = append(f.queries, text)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.matches) > topK {
		return f.matches[:topK], nil
	}
	return f.matches, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeGenerator) Chat(_ context.Context, system, user string, _ bool) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, system)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type captureSink struct {
	records []domain.Record
	err     error
}

func (c *captureSink) Write(_ context.Context, rec domain.Record) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, rec)
	return nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry = fn.RetryOpts{MaxAttempts: 1}
	return opts
}

func defaultMatches() []domain.Match {
	return []domain.Match{
		{ID: "0", Score: 0.92, PostText: "took Tadalafil, got a rash", DrugName: "Tadalafil", AdverseEffect: "Yes", Severity: "Moderate", SideEffects: "rash"},
		{ID: "1", Score: 0.75, PostText: "fine on Metformin", DrugName: "Metformin", AdverseEffect: "No", Severity: "Mild", SideEffects: "None"},
	}
}

func TestRunHappyPath(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{"Drug Name": "Tadalafil", "Adverse effects(Yes/No)": "Yes", "Severity": "Moderate", "Side/Harmful effects": "rash"}`}
	out := &captureSink{}

	svc := New(source.NewSlice([]string{"I took Tadalafil and broke out in a rash"}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(out.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out.records))
	}
	rec := out.records[0]
	if rec[domain.FieldDrugName] != "Tadalafil" {
		t.Errorf("drug = %q", rec[domain.FieldDrugName])
	}
	if rec[domain.FieldPosts] != "I took Tadalafil and broke out in a rash" {
		t.Errorf("posts field should carry the original text, got %q", rec[domain.FieldPosts])
	}
	if err := domain.ValidateRecord(rec); err != nil {
		t.Errorf("record incomplete: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d", gen.calls)
	}
}

func TestRunPromptCarriesRetrievedExamples(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{}`}
	svc := New(source.NewSlice([]string{"some post"}), examples, gen, &captureSink{}, testOptions(), nil, nil)

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %d", len(gen.prompts))
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "took Tadalafil, got a rash") || !strings.Contains(p, "fine on Metformin") {
		t.Errorf("prompt missing retrieved examples:\n%s", p)
	}
}

func TestRunSkipsEmptyDocument(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{}`}
	out := &captureSink{}

	svc := New(source.NewSlice([]string{"   \n\t ", "real post"}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.records) != 1 {
		t.Fatalf("expected only the real post to produce a record, got %d", len(out.records))
	}
	if gen.calls != 1 {
		t.Errorf("empty document should not reach the model, calls = %d", gen.calls)
	}
}

func TestRunSkipsWhenNoRelevantData(t *testing.T) {
	examples := &fakeExamples{}
	gen := &fakeGenerator{reply: `{}`}
	out := &captureSink{}

	svc := New(source.NewSlice([]string{"a post"}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out.records) != 0 {
		t.Errorf("no matches should skip the document, got %d records", len(out.records))
	}
	if gen.calls != 0 {
		t.Errorf("model should not be invoked without examples, calls = %d", gen.calls)
	}
}

func TestRunSkipsOnGenerationFailure(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{err: errors.New("model down")}
	out := &captureSink{}

	svc := New(source.NewSlice([]string{"first", "second"}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("generation failure should not end the run: %v", err)
	}
	if len(out.records) != 0 {
		t.Errorf("failed generations should emit nothing, got %d", len(out.records))
	}
}

func TestRunFallbackOnUnparsableReply(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: "I could not find any structured information, sorry."}
	out := &captureSink{}

	raw := "Weird reaction to Lisinopril last week"
	svc := New(source.NewSlice([]string{raw}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(out.records) != 1 {
		t.Fatalf("unparsable reply must still produce a record, got %d", len(out.records))
	}
	rec := out.records[0]
	if rec[domain.FieldPosts] != raw {
		t.Errorf("fallback posts = %q", rec[domain.FieldPosts])
	}
	if rec[domain.FieldDrugName] != "Unknown" {
		t.Errorf("fallback drug = %q", rec[domain.FieldDrugName])
	}
	if err := domain.ValidateRecord(rec); err != nil {
		t.Errorf("fallback record incomplete: %v", err)
	}
}

func TestRunQueriesWithNormalizedText(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{}`}

	svc := New(source.NewSlice([]string{"spaced    out\n\npost"}), examples, gen, &captureSink{}, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(examples.queries) != 1 || examples.queries[0] != "spaced out post" {
		t.Errorf("queries = %v", examples.queries)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{}`}
	svc := New(source.NewSlice([]string{"doc"}), examples, gen, &captureSink{}, testOptions(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunSinkErrorDoesNotStopLoop(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: `{}`}
	out := &captureSink{err: errors.New("disk full")}

	svc := New(source.NewSlice([]string{"one", "two"}), examples, gen, out, testOptions(), nil, nil)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("sink errors should be logged, not fatal: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("both documents should still be processed, calls = %d", gen.calls)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{reply: "no structured data here, sorry"}
	reg := metrics.New()

	svc := New(source.NewSlice([]string{"a post", "   "}), examples, gen, &captureSink{}, testOptions(), nil, reg)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := reg.Render()
	for _, line := range []string{
		"extract_documents_total 2",
		"extract_skips_total 1",
		"extract_fallback_records_total 1",
		"extract_document_duration_seconds_count 2",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("render missing %q:\n%s", line, out)
		}
	}
	if reg.Gauge("extract_last_document_unixtime", "").Value() == 0 {
		t.Error("last document gauge should be set after a run")
	}
}

func TestRunCountsProcessingFailures(t *testing.T) {
	examples := &fakeExamples{matches: defaultMatches()}
	gen := &fakeGenerator{err: errors.New("model down")}
	reg := metrics.New()

	svc := New(source.NewSlice([]string{"doc"}), examples, gen, &captureSink{}, testOptions(), nil, reg)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := reg.Counter("extract_processing_failures_total", "").Value(); got != 1 {
		t.Errorf("processing failures = %d, want 1", got)
	}
	if got := reg.Counter("extract_skips_total", "").Value(); got != 0 {
		t.Errorf("a processing failure is not a skip, skips = %d", got)
	}
}

func TestRunRetrievalErrorNotCountedAsSkip(t *testing.T) {
	examples := &fakeExamples{queryErr: errors.New("store unreachable")}
	gen := &fakeGenerator{reply: `{}`}
	reg := metrics.New()

	svc := New(source.NewSlice([]string{"doc"}), examples, gen, &captureSink{}, testOptions(), nil, reg)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("retrieval failure should not end the run: %v", err)
	}

	if got := reg.Counter("extract_processing_failures_total", "").Value(); got != 1 {
		t.Errorf("processing failures = %d, want 1", got)
	}
	if gen.calls != 0 {
		t.Errorf("model should not be invoked after retrieval failure, calls = %d", gen.calls)
	}
}

func TestProcessOneReturnsSentinels(t *testing.T) {
	examples := &fakeExamples{}
	gen := &fakeGenerator{reply: `{}`}
	svc := New(source.NewSlice(nil), examples, gen, &captureSink{}, testOptions(), nil, nil)

	if _, err := svc.ProcessOne(context.Background(), "  "); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := svc.ProcessOne(context.Background(), "text"); !errors.Is(err, ErrNoRelevantData) {
		t.Errorf("expected ErrNoRelevantData, got %v", err)
	}
}
