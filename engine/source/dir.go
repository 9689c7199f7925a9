package source

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Dir serves the contents of every .txt file in a directory, in lexical
// filename order. A file that cannot be read is yielded as an empty document
// so the consumer's empty-input handling applies; the loop keeps going.
type Dir struct {
	files  []string
	pos    int
	logger *slog.Logger
}

// NewDir scans dir for .txt files. The listing is taken once at construction.
func NewDir(dir string, logger *slog.Logger) (*Dir, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return &Dir{files: files, logger: logger}, nil
}

// Next implements Source.
func (d *Dir) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.pos >= len(d.files) {
		return "", ErrExhausted
	}
	path := d.files[d.pos]
	d.pos++

	data, err := os.ReadFile(path)
	if err != nil {
		d.logger.Warn("unreadable document", "path", path, "err", err)
		return "", nil
	}
	return string(data), nil
}
