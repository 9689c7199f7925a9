// Package sink delivers finished extraction records to their destinations.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/medsift/adr-engine/engine/corpus"
	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/engine/graph"
	"github.com/medsift/adr-engine/pkg/natsutil"
)

// Sink consumes one extraction record.
type Sink interface {
	Write(ctx context.Context, rec domain.Record) error
}

// Console renders records as indented JSON with a stable field order.
type Console struct {
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Write implements Sink.
func (c *Console) Write(_ context.Context, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink: marshal record: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("sink: indent record: %w", err)
	}
	buf.WriteByte('\n')
	_, err = c.out.Write(buf.Bytes())
	return err
}

// CSV appends records to a CSV file via the corpus writer.
type CSV struct {
	w *corpus.Writer
}

// NewCSV creates a CSV sink writing to path.
func NewCSV(path string) *CSV {
	return &CSV{w: corpus.NewWriter(path)}
}

// Write implements Sink.
func (c *CSV) Write(_ context.Context, rec domain.Record) error {
	return c.w.Append(rec)
}

// NATS publishes each record as JSON to a subject.
type NATS struct {
	nc      *nats.Conn
	subject string
}

// NewNATS creates a NATS sink.
func NewNATS(nc *nats.Conn, subject string) *NATS {
	return &NATS{nc: nc, subject: subject}
}

// Write implements Sink.
func (n *NATS) Write(ctx context.Context, rec domain.Record) error {
	return natsutil.Publish(ctx, n.nc, n.subject, rec)
}

// Graph persists the drug/effect relationship of each record.
type Graph struct {
	store *graph.Store
}

// NewGraph creates a Graph sink.
func NewGraph(store *graph.Store) *Graph {
	return &Graph{store: store}
}

// Write implements Sink.
func (g *Graph) Write(ctx context.Context, rec domain.Record) error {
	return g.store.SaveExtraction(ctx, rec)
}

// Multi fans a record out to every sink. A failing sink is logged and does
// not block the others; the first error is returned after all sinks ran.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti creates a Multi over sinks.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Write implements Sink.
func (m *Multi) Write(ctx context.Context, rec domain.Record) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			m.logger.Error("sink write failed", "sink", fmt.Sprintf("%T", s), "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
