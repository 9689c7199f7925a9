package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestFallbackHasAllFields(t *testing.T) {
	rec := Fallback("original text", "normalized text")
	for _, f := range FieldOrder {
		if _, ok := rec[f]; !ok {
			t.Errorf("fallback missing field %q", f)
		}
	}
	if rec[FieldPosts] != "original text" {
		t.Errorf("Posts = %q, want original text", rec[FieldPosts])
	}
	if rec[FieldPreprocessed] != "normalized text" {
		t.Errorf("Preprocessed Posts = %q, want normalized text", rec[FieldPreprocessed])
	}
	if rec[FieldLinks] != "N/A" || rec[FieldDrugName] != "Unknown" ||
		rec[FieldAdverse] != "No" || rec[FieldSeverity] != "Mild" ||
		rec[FieldSideEffects] != "None" || rec[FieldImages] != "Non physical" {
		t.Errorf("unexpected defaults: %v", rec)
	}
}

func TestFillDefaultsLeavesPresentFields(t *testing.T) {
	rec := Record{
		FieldDrugName: "Tadalafil",
		FieldSeverity: "Moderate",
		"note":        "extra",
	}
	rec.FillDefaults("orig", "norm")

	if rec[FieldDrugName] != "Tadalafil" || rec[FieldSeverity] != "Moderate" {
		t.Errorf("present fields were overwritten: %v", rec)
	}
	if rec[FieldAdverse] != "No" || rec[FieldSideEffects] != "None" {
		t.Errorf("missing fields not defaulted: %v", rec)
	}
	if rec["note"] != "extra" {
		t.Errorf("extra field lost: %v", rec)
	}
}

func TestMarshalJSONDeterministicOrder(t *testing.T) {
	rec := Fallback("o", "n")
	rec["zeta"] = "z"
	rec["alpha"] = "a"

	a, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, _ := rec.MarshalJSON()
	if string(a) != string(b) {
		t.Error("marshal output not deterministic")
	}

	s := string(a)
	if !strings.HasPrefix(s, `{"Links":`) {
		t.Errorf("Links should render first, got %s", s)
	}
	if strings.Index(s, `"alpha"`) > strings.Index(s, `"zeta"`) {
		t.Errorf("extras not sorted: %s", s)
	}
}

func TestValidateExample(t *testing.T) {
	if err := ValidateExample(ExampleRecord{PostText: "took drug, got rash"}); err != nil {
		t.Errorf("valid example rejected: %v", err)
	}
	err := ValidateExample(ExampleRecord{PostText: "   "})
	if !errors.Is(err, ErrEmptyPost) {
		t.Errorf("expected ErrEmptyPost, got %v", err)
	}
}

func TestValidateRecord(t *testing.T) {
	if err := ValidateRecord(Fallback("o", "n")); err != nil {
		t.Errorf("fallback record should validate: %v", err)
	}

	incomplete := Record{FieldDrugName: "Tadalafil"}
	if err := ValidateRecord(incomplete); !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for incomplete record, got %v", err)
	}
}

func TestRowFollowsFieldOrder(t *testing.T) {
	rec := Fallback("orig", "norm")
	row := rec.Row()
	if len(row) != len(FieldOrder) {
		t.Fatalf("row length %d, want %d", len(row), len(FieldOrder))
	}
	if row[1] != "orig" || row[3] != "Unknown" {
		t.Errorf("unexpected row: %v", row)
	}
}
