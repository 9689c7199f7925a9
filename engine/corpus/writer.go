package corpus

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/medsift/adr-engine/engine/domain"
)

// Writer appends extraction records to a CSV file, one row per document in
// the fixed output field order. The header is written when the file is new
// or empty.
type Writer struct {
	path string
}

// NewWriter creates a CSV writer targeting path. The file is created lazily
// on first append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append writes one record row, creating the file and header as needed.
func (w *Writer) Append(rec domain.Record) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("corpus: open results %s: %w", w.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("corpus: stat results: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(domain.FieldOrder); err != nil {
			return fmt.Errorf("corpus: write header: %w", err)
		}
	}
	if err := cw.Write(rec.Row()); err != nil {
		return fmt.Errorf("corpus: write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}
