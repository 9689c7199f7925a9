package semantic

// SearchResult represents a single vector search hit. Hits come back ordered
// most similar first.
type SearchResult struct {
	ID            string            `json:"id"`
	Score         float32           `json:"score"`
	Post          string            `json:"post"`
	DrugName      string            `json:"drug_name"`
	AdverseEffect string            `json:"adverse_effect"`
	Severity      string            `json:"severity"`
	SideEffects   string            `json:"side_effects"`
	Meta          map[string]string `json:"meta"`
}

// VectorRecord represents a single vector to store in Qdrant.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Payload   map[string]any // post, drug_name, adverse_effect, severity, side_effects, example_id
}
