package persona

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed persona.schema.json
var schemaJSON string

const schemaURL = "persona.schema.json"

var schema = jsonschema.MustCompileString(schemaURL, schemaJSON)

// Parse decodes a YAML persona document and validates it against the
// embedded schema. Every field is required; hobbies must be non-empty.
func Parse(data []byte) (Persona, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Persona{}, fmt.Errorf("persona parse: %w", err)
	}

	// The validator works on JSON values, so the YAML tree is round-tripped
	// through encoding/json first. This also rejects YAML-only constructs
	// such as non-string map keys.
	raw, err := json.Marshal(doc)
	if err != nil {
		return Persona{}, fmt.Errorf("persona parse: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var inst any
	if err := dec.Decode(&inst); err != nil {
		return Persona{}, fmt.Errorf("persona parse: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return Persona{}, fmt.Errorf("persona invalid: %w", err)
	}

	var p Persona
	if err := json.Unmarshal(raw, &p); err != nil {
		return Persona{}, fmt.Errorf("persona decode: %w", err)
	}
	return p, nil
}

// LoadFile reads and parses the persona file at path.
func LoadFile(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(data)
}
