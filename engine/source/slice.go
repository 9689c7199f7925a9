package source

import "context"

// Slice serves a fixed list of documents in order, then reports ErrExhausted.
type Slice struct {
	docs []string
	pos  int
}

// NewSlice creates a Slice over docs.
func NewSlice(docs []string) *Slice {
	return &Slice{docs: docs}
}

// Next implements Source.
func (s *Slice) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.docs) {
		return "", ErrExhausted
	}
	doc := s.docs[s.pos]
	s.pos++
	return doc, nil
}
