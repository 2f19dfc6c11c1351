// Package validation checks submitted form values against per-field rules.
//
// Rules mirror the constraints a browser enforces natively (required,
// pattern, enumerated options, numeric bounds, length). Each rule compiles to
// an OpenAPI schema and values are validated with kin-openapi, so the server
// and any client generated from the same rules agree on what is valid.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Kind is the value type a field decodes to.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
)

// Rule describes the constraints for a single field.
type Rule struct {
	Kind      Kind
	Required  bool
	Pattern   string
	Message   string // replaces the default pattern message
	Enum      []string
	Min       *float64
	Max       *float64
	MinLength int
	MaxLength int
}

// Issue is a failed check with the dotted path of the offending field.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of checking one value.
type Result struct {
	// Value is the decoded value; nil when the field was left empty.
	Value   any
	Message string
}

// OK reports whether the value passed.
func (r Result) OK() bool { return r.Message == "" }

const requiredMessage = "required"

// Check decodes raw according to the rule's kind and validates it. Empty
// optional values pass and decode to nil.
func Check(rule Rule, raw any) Result {
	text, present := asText(raw)
	if !present {
		if rule.Kind == KindBoolean {
			if rule.Required {
				return Result{Message: requiredMessage}
			}
			return Result{Value: false}
		}
		if rule.Required {
			return Result{Message: requiredMessage}
		}
		return Result{}
	}

	value, err := decode(rule.Kind, raw, text)
	if err != nil {
		return Result{Message: err.Error()}
	}
	if rule.Kind == KindBoolean && rule.Required && value == false {
		return Result{Message: requiredMessage}
	}

	if err := rule.Schema().VisitJSON(jsonValue(value)); err != nil {
		return Result{Message: rule.message(err)}
	}
	return Result{Value: value}
}

// Schema compiles the rule into an OpenAPI schema. Presence is handled by
// Check, so the schema only constrains non-empty values.
func (r Rule) Schema() *openapi3.Schema {
	var schema *openapi3.Schema
	switch r.Kind {
	case KindInteger:
		schema = openapi3.NewIntegerSchema()
	case KindNumber:
		schema = openapi3.NewFloat64Schema()
	case KindBoolean:
		schema = openapi3.NewBoolSchema()
	default:
		schema = openapi3.NewStringSchema()
	}

	if r.Pattern != "" && (r.Kind == "" || r.Kind == KindString) {
		schema.Pattern = anchor(r.Pattern)
	}
	if r.MinLength > 0 {
		schema.MinLength = uint64(r.MinLength)
	}
	if r.MaxLength > 0 {
		max := uint64(r.MaxLength)
		schema.MaxLength = &max
	}
	if r.Min != nil {
		min := *r.Min
		schema.Min = &min
	}
	if r.Max != nil {
		max := *r.Max
		schema.Max = &max
	}
	if len(r.Enum) > 0 {
		enum := make([]any, 0, len(r.Enum))
		for _, option := range r.Enum {
			if v, err := decode(r.Kind, option, option); err == nil {
				enum = append(enum, jsonValue(v))
			}
		}
		schema.Enum = enum
	}
	return schema
}

func (r Rule) message(err error) string {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return err.Error()
	}
	switch schemaErr.SchemaField {
	case "pattern":
		if r.Message != "" {
			return r.Message
		}
		return "has an invalid format"
	case "enum":
		return "is not an allowed option"
	case "minimum":
		return fmt.Sprintf("must be at least %s", formatBound(r.Min))
	case "maximum":
		return fmt.Sprintf("must be at most %s", formatBound(r.Max))
	case "minLength":
		return fmt.Sprintf("must be at least %d characters", r.MinLength)
	case "maxLength":
		return fmt.Sprintf("must be at most %d characters", r.MaxLength)
	}
	if schemaErr.Reason != "" {
		return schemaErr.Reason
	}
	return err.Error()
}

// anchor makes a pattern match the whole value, the way the HTML pattern
// attribute does.
func anchor(pattern string) string {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^(?:" + pattern
		if strings.HasSuffix(pattern, "$") {
			return pattern[:len(pattern)-1] + ")$"
		}
		return pattern + ")$"
	}
	if !strings.HasSuffix(pattern, "$") {
		return pattern + "$"
	}
	return pattern
}

func asText(raw any) (string, bool) {
	switch typed := raw.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(typed)
		return trimmed, trimmed != ""
	case []string:
		if len(typed) == 0 {
			return "", false
		}
		trimmed := strings.TrimSpace(typed[0])
		return trimmed, trimmed != ""
	}
	return fmt.Sprint(raw), true
}

func decode(kind Kind, raw any, text string) (any, error) {
	switch kind {
	case KindInteger:
		switch typed := raw.(type) {
		case int:
			return typed, nil
		case int64:
			return int(typed), nil
		case float64:
			if typed != math.Trunc(typed) {
				return nil, errors.New("must be a whole number")
			}
			return int(typed), nil
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, errors.New("must be a whole number")
		}
		return n, nil
	case KindNumber:
		switch typed := raw.(type) {
		case float64:
			return typed, nil
		case int:
			return float64(typed), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.New("must be a number")
		}
		return f, nil
	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		switch strings.ToLower(text) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return nil, errors.New("must be yes or no")
	}
	return text, nil
}

// jsonValue converts decoded values to the shapes encoding/json produces,
// which is what schema validation expects.
func jsonValue(value any) any {
	if n, ok := value.(int); ok {
		return float64(n)
	}
	return value
}

func formatBound(bound *float64) string {
	if bound == nil {
		return ""
	}
	return strconv.FormatFloat(*bound, 'f', -1, 64)
}
