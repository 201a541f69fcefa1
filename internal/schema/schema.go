// Package schema validates untyped request and response payloads against
// small JSON Schema object definitions and converts them into typed records.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

const rootField = "(root)"

// Field describes one string property of an object schema.
type Field struct {
	Name        string
	Description string
	// MinLength is the minimum number of characters; 0 allows the empty string.
	MinLength int
	// Optional fields may be omitted from the document.
	Optional bool
}

// Schema is a compiled object schema whose properties are all strings.
type Schema struct {
	name     string
	fields   []Field
	document map[string]any
	compiled *gojsonschema.Schema
}

// New builds and compiles an object schema named name.
func New(name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %s: at least one field is required", name)
	}

	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field name cannot be empty", name)
		}
		if _, dup := properties[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		prop := map[string]any{"type": "string"}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if f.MinLength > 0 {
			prop["minLength"] = f.MinLength
		}
		properties[f.Name] = prop
		if !f.Optional {
			required = append(required, f.Name)
		}
	}

	// Unknown properties are tolerated on validation and dropped by Decode.
	document := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		document["required"] = required
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(document))
	if err != nil {
		return nil, fmt.Errorf("schema %s: compile: %w", name, err)
	}

	return &Schema{
		name:     name,
		fields:   append([]Field(nil), fields...),
		document: document,
		compiled: compiled,
	}, nil
}

// MustNew is like New but panics on error. It is meant for package-level schemas.
func MustNew(name string, fields ...Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// JSON returns the JSON Schema document handed to LLM providers as a
// structured output contract. Unlike validation, the contract forbids
// additional properties, as strict structured output modes require.
func (s *Schema) JSON() map[string]any {
	doc := deepCopy(s.document).(map[string]any)
	doc["additionalProperties"] = false
	return doc
}

// Validate checks doc, a map or a JSON-tagged struct, against s. It returns nil
// when doc has the right shape and a *ValidationError listing every field-level
// violation otherwise.
func (s *Schema) Validate(doc any) error {
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		// The document could not be loaded at all, e.g. a value json cannot encode.
		return &ValidationError{
			Schema:     s.name,
			Violations: []Violation{{Field: rootField, Reason: err.Error()}},
		}
	}
	violations := s.encodingViolations(doc)
	if result.Valid() && len(violations) == 0 {
		return nil
	}

	for _, re := range result.Errors() {
		violations = append(violations, Violation{
			Field:  fieldOf(re),
			Reason: re.Description(),
		})
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Field < violations[j].Field
	})

	return &ValidationError{Schema: s.name, Violations: violations}
}

// Decode validates doc against s and converts it into T.
func Decode[T any](s *Schema, doc any) (T, error) {
	var out T
	if err := s.Validate(doc); err != nil {
		return out, err
	}
	if typed, ok := doc.(T); ok {
		return typed, nil
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return out, fmt.Errorf("schema %s: encode: %w", s.name, err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("schema %s: decode into %T: %w", s.name, out, err)
	}
	return out, nil
}

// fieldOf names the property a result error is about. Errors raised at the
// object level (required, additional property) carry the property in details.
func fieldOf(re gojsonschema.ResultError) string {
	field := re.Field()
	if field == rootField || field == "" {
		if p, ok := re.Details()["property"].(string); ok && p != "" {
			return p
		}
		return rootField
	}
	return strings.TrimPrefix(field, rootField+".")
}

// encodingViolations reports declared string fields holding invalid UTF-8.
// JSON encoding would silently replace those bytes before gojsonschema sees
// them, so they are checked on the original value.
func (s *Schema) encodingViolations(doc any) []Violation {
	var violations []Violation
	for _, f := range s.fields {
		v, ok := stringField(doc, f.Name)
		if ok && !utf8.ValidString(v) {
			violations = append(violations, Violation{Field: f.Name, Reason: "String is not valid UTF-8"})
		}
	}
	return violations
}

// stringField looks up name in a map or in a struct by its json tag.
func stringField(doc any, name string) (string, bool) {
	if m, ok := doc.(map[string]any); ok {
		v, ok := m[name].(string)
		return v, ok
	}

	rv := reflect.ValueOf(doc)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "" {
			tag = sf.Name
		}
		if tag == name && sf.IsExported() && sf.Type.Kind() == reflect.String {
			return rv.Field(i).String(), true
		}
	}
	return "", false
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
