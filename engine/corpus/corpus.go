// Package corpus reads the labeled example corpus from CSV and appends
// extraction results to a CSV sink.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/medsift/adr-engine/engine/domain"
	"github.com/medsift/adr-engine/pkg/fn"
)

// Columns the corpus must carry. Optional columns (Links, Preprocessed Posts,
// Images) are picked up when present.
var requiredColumns = []string{
	domain.FieldPosts,
	domain.FieldDrugName,
	domain.FieldAdverse,
	domain.FieldSeverity,
	domain.FieldSideEffects,
}

// Load reads labeled examples from a CSV file. Rows with empty post text are
// dropped; surviving rows get their row index as a stable ID.
func Load(path string) ([]domain.ExampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses corpus rows from r. The first row is the header.
func Read(r io.Reader) ([]domain.ExampleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("corpus: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := col[c]; !ok {
			return nil, domain.NewValidationError("header", c, domain.ErrMissingColumn)
		}
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corpus: read rows: %w", err)
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := fn.FilterMap(rows, func(row []string) (domain.ExampleRecord, bool) {
		rec := domain.ExampleRecord{
			PostText:         field(row, domain.FieldPosts),
			DrugName:         field(row, domain.FieldDrugName),
			AdverseEffect:    field(row, domain.FieldAdverse),
			Severity:         field(row, domain.FieldSeverity),
			SideEffects:      field(row, domain.FieldSideEffects),
			Link:             field(row, domain.FieldLinks),
			PreprocessedText: field(row, domain.FieldPreprocessed),
			ImageKind:        field(row, domain.FieldImages),
		}
		return rec, domain.ValidateExample(rec) == nil
	})

	// Row index as stable identity, assigned after filtering so IDs are dense.
	for i := range records {
		records[i].ID = strconv.Itoa(i)
	}
	return records, nil
}
