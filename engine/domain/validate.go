package domain

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateExample checks a corpus row before indexing. Rows with empty post
// text carry no retrievable signal and are dropped at load time.
func ValidateExample(e ExampleRecord) error {
	if strings.TrimSpace(e.PostText) == "" {
		return NewValidationError("post_text", e.PostText, ErrEmptyPost)
	}
	return nil
}

// recordSchema declares the required output field set. Extra fields are
// allowed; the extractor preserves them.
const recordSchema = `{
	"type": "object",
	"required": [
		"Links",
		"Posts",
		"Preprocessed Posts",
		"Drug Name",
		"Adverse effects(Yes/No)",
		"Severity",
		"Side/Harmful effects",
		"Images(Physical/Non physical)"
	],
	"additionalProperties": {"type": "string"}
}`

var compileSchema = sync.OnceValue(func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.schema.json", strings.NewReader(recordSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("record.schema.json")
})

// ValidateRecord checks a structured output record against the output schema
// before it reaches a sink.
func ValidateRecord(r Record) error {
	data := make(map[string]any, len(r))
	for k, v := range r {
		data[k] = v
	}
	if err := compileSchema().Validate(data); err != nil {
		return NewValidationError("record", err.Error(), ErrSchema)
	}
	return nil
}
