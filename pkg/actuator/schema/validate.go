package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks command payloads against an actuator's state schema.
// Compiled schemas are cached by actuator id.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator creates a new Validator with an empty cache.
func NewValidator() *Validator {
	return &Validator{
		cache: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks payload against schemaDoc, compiling it under key on first
// use. An empty document accepts everything.
func (v *Validator) Validate(key string, schemaDoc json.RawMessage, payload map[string]any) error {
	if len(schemaDoc) == 0 || string(schemaDoc) == "{}" || string(schemaDoc) == "null" {
		return nil
	}

	compiled, err := v.compile(key, schemaDoc)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", key, err)
	}

	return compiled.Validate(payload)
}

func (v *Validator) compile(key string, schemaDoc json.RawMessage) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if s, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return s, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.cache[key]; ok {
		return s, nil
	}

	var doc any
	if err := json.Unmarshal(schemaDoc, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := key + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	v.cache[key] = compiled
	return compiled, nil
}

// StateSchema builds the schema for an actuator that accepts the given
// states and, when withValue is set, an optional 0-100 level.
func StateSchema(states []string, withValue bool) json.RawMessage {
	props := map[string]any{
		"state": map[string]any{"type": "string", "enum": states},
	}
	if withValue {
		props["value"] = map[string]any{"type": "integer", "minimum": 0, "maximum": 100}
	}
	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"required":             []string{"state"},
		"additionalProperties": false,
	}
	raw, _ := json.Marshal(doc)
	return raw
}
