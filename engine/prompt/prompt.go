// Package prompt renders the few-shot instruction given to the model. Build is
// a pure function: the same ordered match list always yields byte-identical
// output, so prompts are reproducible across runs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/medsift/adr-engine/engine/domain"
)

// placeholder replaces field values missing from a retrieved example.
const placeholder = "Unknown"

const preamble = `You are a medical text-processing AI. Extract structured information from the provided input and format it as a JSON object with the following fields:

1. Links: A URL or reference link (if available).
2. Posts: The original text input.
3. Preprocessed Posts: A cleaned and shortened version of the text.
4. Drug Name: The name of the drug mentioned in the text.
5. Adverse effects(Yes/No): Whether adverse effects are mentioned (Yes/No).
6. Severity: The severity of the adverse effects (Mild/Moderate/Severe).
7. Side/Harmful effects: A description of the side or harmful effects.
8. Images(Physical/Non physical): Whether images are physical or non-physical.

Example Output:
{
  "Links": "N/A",
  "Posts": "Original text input...",
  "Preprocessed Posts": "Cleaned and shortened text...",
  "Drug Name": "Tadalafil",
  "Adverse effects(Yes/No)": "Yes",
  "Severity": "Moderate",
  "Side/Harmful effects": "Bullous fixed drug eruption",
  "Images(Physical/Non physical)": "Physical"
}
`

const closing = `
Always return only a JSON object with exactly the fields listed above, based on the examples. Do not include any additional fields, explanations, or text outside the JSON object.`

// Build renders the system prompt from retrieved examples. Matches are
// rendered in input order; retrieval order is the relevance ranking and is
// never re-sorted here. Missing field values render as "Unknown".
func Build(matches []domain.Match) string {
	var b strings.Builder
	b.WriteString(preamble)

	for _, m := range matches {
		b.WriteString("\nExample:\nPost: ")
		b.WriteString(orUnknown(m.PostText))
		fmt.Fprintf(&b, "\nOutput JSON: {\n    %q: %q,\n    %q: %q,\n    %q: %q,\n    %q: %q\n}\n",
			domain.FieldDrugName, orUnknown(m.DrugName),
			domain.FieldAdverse, orUnknown(m.AdverseEffect),
			domain.FieldSeverity, orUnknown(m.Severity),
			domain.FieldSideEffects, orUnknown(m.SideEffects),
		)
	}

	b.WriteString(closing)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}
