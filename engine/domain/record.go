package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Record is the structured output for one processed document: a mapping from
// the fixed field set to string values. Fields the model emitted beyond the
// required set are preserved. After extraction every required field is present,
// either parsed, defaulted, or supplied by the fallback record.
type Record map[string]string

// DefaultFor returns the documented default for a required field that is
// absent from the model output. Posts and Preprocessed Posts default to the
// document's original and normalized text respectively.
func DefaultFor(field, originalText, normalizedText string) string {
	switch field {
	case FieldLinks:
		return "N/A"
	case FieldPosts:
		return originalText
	case FieldPreprocessed:
		return normalizedText
	case FieldDrugName:
		return "Unknown"
	case FieldAdverse:
		return string(AdverseNo)
	case FieldSeverity:
		return string(SeverityMild)
	case FieldSideEffects:
		return "None"
	case FieldImages:
		return string(ImageNonPhysical)
	default:
		return "N/A"
	}
}

// Fallback synthesizes a complete record from the source text alone. It is
// returned when the model response cannot be parsed at all.
func Fallback(originalText, normalizedText string) Record {
	rec := make(Record, len(FieldOrder))
	for _, f := range FieldOrder {
		rec[f] = DefaultFor(f, originalText, normalizedText)
	}
	return rec
}

// FillDefaults inserts the documented default for every required field absent
// from rec. Present fields, including extras, are left untouched.
func (r Record) FillDefaults(originalText, normalizedText string) {
	for _, f := range FieldOrder {
		if _, ok := r[f]; !ok {
			r[f] = DefaultFor(f, originalText, normalizedText)
		}
	}
}

// Row returns the record's values in FieldOrder, for CSV output.
func (r Record) Row() []string {
	row := make([]string, len(FieldOrder))
	for i, f := range FieldOrder {
		row[i] = r[f]
	}
	return row
}

// MarshalJSON renders required fields in FieldOrder followed by any extra
// fields in sorted order, so rendered output is deterministic.
func (r Record) MarshalJSON() ([]byte, error) {
	required := make(map[string]bool, len(FieldOrder))
	for _, f := range FieldOrder {
		required[f] = true
	}

	var extras []string
	for k := range r {
		if !required[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeField := func(k string) error {
		v, ok := r[k]
		if !ok {
			return nil
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	for _, f := range FieldOrder {
		if err := writeField(f); err != nil {
			return nil, err
		}
	}
	for _, k := range extras {
		if err := writeField(k); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
