// Package graph persists extracted drug/effect relationships into Neo4j.
package graph

// Effect is one drug-to-side-effect edge read back from the graph.
type Effect struct {
	Drug          string `json:"drug"`
	SideEffects   string `json:"side_effects"`
	Severity      string `json:"severity"`
	AdverseEffect string `json:"adverse_effect"`
}
