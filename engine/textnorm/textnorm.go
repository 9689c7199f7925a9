// Package textnorm cleans raw document text before it is sent to the model.
// PDF-extracted text arrives with ligatures, stray control characters, and
// ragged whitespace; normalization is strictly best-effort and never fails.
package textnorm

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Ellipsis marks a truncated document.
const Ellipsis = "..."

// Normalize collapses whitespace runs to single spaces, trims the edges,
// applies NFKC normalization to repair ligatures and encoding artifacts, and
// truncates to maxLen runes. Truncation avoids splitting inside a word where
// possible and appends an ellipsis marker. maxLen <= 0 disables truncation.
func Normalize(raw string, maxLen int) string {
	s := strings.ToValidUTF8(raw, "")
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 0 {
		return s
	}
	return truncate(s, maxLen)
}

// truncate shortens s to at most maxLen runes including the ellipsis, cutting
// at the last word boundary inside the budget when one exists.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	budget := maxLen - len(Ellipsis)
	if budget <= 0 {
		return Ellipsis[:maxLen]
	}

	cut := runes[:budget]
	if idx := lastSpace(cut); idx > 0 {
		cut = cut[:idx]
	}
	return string(cut) + Ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
