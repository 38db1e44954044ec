package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/folio/internal/translator"
)

//go:embed batch_manifest.schema.json
var batchManifestSchemaJSON string

// Manifest is a declarative batch descriptor, accepted by the translate
// command and the HTTP batch endpoint.
type Manifest struct {
	Files       []string `json:"files"`
	SourceLang  string   `json:"source_lang"`
	TargetLang  string   `json:"target_lang"`
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	CustomTerms string   `json:"custom_terms,omitempty"`
	SegmentSize int      `json:"segment_size,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Validate checks a raw manifest payload against the embedded schema plus
// semantic rules and returns the decoded manifest.
func Validate(payload json.RawMessage) (*Manifest, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode manifest JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize manifest JSON: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(normalized, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := validateSemantics(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func validateSemantics(m *Manifest) error {
	seen := make(map[string]struct{}, len(m.Files))
	for _, name := range m.Files {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("manifest file names must not be blank")
		}
		if trimmed != filepath.Base(trimmed) {
			return fmt.Errorf("manifest file %q must be a bare name, not a path", name)
		}
		if _, dup := seen[trimmed]; dup {
			return fmt.Errorf("manifest lists %q more than once", trimmed)
		}
		seen[trimmed] = struct{}{}
	}

	source := translator.NormalizeLangCode(m.SourceLang)
	if source != "auto" && !translator.IsSupportedLanguage(source) {
		return fmt.Errorf("unsupported source language: %s", m.SourceLang)
	}
	if !translator.IsSupportedLanguage(m.TargetLang) {
		return fmt.Errorf("unsupported target language: %s", m.TargetLang)
	}
	if source != "auto" && source == translator.NormalizeLangCode(m.TargetLang) {
		return fmt.Errorf("source and target language must differ")
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("batch_manifest.schema.json", strings.NewReader(batchManifestSchemaJSON)); err != nil {
			compiledSchemaErr = err
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("batch_manifest.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

func decodeStrictJSON(payload json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := ensureSingleDocument(decoder); err != nil {
		return nil, err
	}
	return value, nil
}

func ensureSingleDocument(decoder *json.Decoder) error {
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("manifest must contain a single JSON document")
	}
	return nil
}
