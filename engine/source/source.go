// Package source supplies the documents the extraction loop consumes.
package source

import (
	"context"
	"errors"
)

// ErrExhausted signals that a source has no more documents and never will.
// The serve loop treats it as a clean shutdown, not a failure.
var ErrExhausted = errors.New("source exhausted")

// Source yields raw document texts one at a time. Next blocks until a
// document is available, the source is exhausted, or ctx is done. An empty
// string with a nil error is a valid yield; the consumer decides how to
// handle it.
type Source interface {
	Next(ctx context.Context) (string, error)
}
