// Package domain defines core domain types, constants, and validation for the
// ADR extraction pipeline. It acts as the validation gate at pipeline entry points.
package domain

// Canonical output field names. These match the example corpus column headers
// and the JSON keys the model is instructed to emit.
const (
	FieldLinks        = "Links"
	FieldPosts        = "Posts"
	FieldPreprocessed = "Preprocessed Posts"
	FieldDrugName     = "Drug Name"
	FieldAdverse      = "Adverse effects(Yes/No)"
	FieldSeverity     = "Severity"
	FieldSideEffects  = "Side/Harmful effects"
	FieldImages       = "Images(Physical/Non physical)"
)

// FieldOrder is the fixed output column order for CSV rows and rendered JSON.
var FieldOrder = []string{
	FieldLinks,
	FieldPosts,
	FieldPreprocessed,
	FieldDrugName,
	FieldAdverse,
	FieldSeverity,
	FieldSideEffects,
	FieldImages,
}

// AdverseEffect classifies whether a post reports an adverse effect.
type AdverseEffect string

const (
	AdverseYes     AdverseEffect = "Yes"
	AdverseNo      AdverseEffect = "No"
	AdverseUnknown AdverseEffect = "Unknown"
)

// Severity classifies how severe a reported effect is.
type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
	SeverityUnknown  Severity = "Unknown"
)

// ImageKind classifies attached imagery in the source post.
type ImageKind string

const (
	ImagePhysical    ImageKind = "Physical"
	ImageNonPhysical ImageKind = "Non physical"
)

// ExampleRecord is one labeled training example from the corpus. Records are
// created in bulk at load time, keyed by row index, and never mutated after
// insertion into the store.
type ExampleRecord struct {
	ID               string `json:"id"`
	PostText         string `json:"post_text"`
	DrugName         string `json:"drug_name"`
	AdverseEffect    string `json:"adverse_effect"`
	Severity         string `json:"severity"`
	SideEffects      string `json:"side_effects"`
	Link             string `json:"link,omitempty"`
	PreprocessedText string `json:"preprocessed_text,omitempty"`
	ImageKind        string `json:"image_kind,omitempty"`
}

// Match is a retrieved example from a similarity query. Rank is implicit in
// slice order; most similar first.
type Match struct {
	ID            string  `json:"id"`
	Score         float32 `json:"score"`
	PostText      string  `json:"post_text"`
	DrugName      string  `json:"drug_name"`
	AdverseEffect string  `json:"adverse_effect"`
	Severity      string  `json:"severity"`
	SideEffects   string  `json:"side_effects"`
}
