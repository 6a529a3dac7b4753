package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

//go:embed lexicon.yaml
var defaultYAML []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("lexicon.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Parse decodes a lexicon YAML document, checks it against the embedded JSON
// Schema, and runs the structural checks in Validate. It is the canonical
// entry point for loading lexicon documents.
func Parse(data []byte) (*Document, error) {
	// Schema validation happens on the generic decoding so that unknown or
	// mistyped keys are reported with their JSON-pointer location.
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("lexicon parse: %w", err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("lexicon schema: %w", err)
	}
	if err := sch.Validate(generic); err != nil {
		return nil, fmt.Errorf("lexicon schema: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("lexicon parse: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses a lexicon document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon load: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in lexicon shipped with the binary.
//
// The embedded document is covered by tests; a parse failure here means the
// binary was built from a broken asset, so panicking is appropriate.
func Default() *Document {
	doc, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
	}
	return doc
}

// Validate checks a Document for structural correctness beyond what the JSON
// Schema can express. It returns the first validation error encountered, or
// nil if the document is valid.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("lexicon must not be nil")
	}

	if doc.APIVersion != SpecVersion {
		return fmt.Errorf("apiVersion must be %q, got %q", SpecVersion, doc.APIVersion)
	}

	for i, c := range doc.Corrections {
		if strings.TrimSpace(c.From) == "" {
			return fmt.Errorf("corrections[%d].from must not be empty", i)
		}
		if c.From == c.To {
			return fmt.Errorf("corrections[%d] maps %q to itself", i, c.From)
		}
		// A replacement that still contains the source phrase as a whole
		// word would fire again on its own output.
		needle := " " + strings.ToLower(strings.TrimSpace(c.From)) + " "
		if strings.Contains(" "+strings.ToLower(c.To)+" ", needle) {
			return fmt.Errorf("corrections[%d] output %q re-triggers the rule", i, c.To)
		}
	}

	if len(doc.Fillers.Verbs) == 0 {
		return fmt.Errorf("fillers.verbs must not be empty")
	}
	if len(doc.Fillers.Words) == 0 {
		return fmt.Errorf("fillers.words must not be empty")
	}

	if len(doc.Subject.Prepositions) == 0 {
		return fmt.Errorf("subject.prepositions must not be empty")
	}
	for i, c := range doc.Subject.Canonical {
		if len(c.Contains) == 0 {
			return fmt.Errorf("subject.canonical[%d].contains must not be empty", i)
		}
		if strings.TrimSpace(c.Phrase) == "" {
			return fmt.Errorf("subject.canonical[%d].phrase must not be empty", i)
		}
	}

	if len(doc.Edit.Greetings) == 0 {
		return fmt.Errorf("edit.greetings must not be empty")
	}
	if len(doc.Edit.Closings) == 0 {
		return fmt.Errorf("edit.closings must not be empty")
	}

	return nil
}
