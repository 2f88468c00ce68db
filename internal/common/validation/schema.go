package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	activityPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// JSONSchema describes the variables a job accepts.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Pattern     *string             `json:"pattern,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks decoded job variables against schema.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	var errs []ValidationError

	for _, field := range schema.Required {
		if v, ok := input[field]; !ok || v == nil {
			errs = append(errs, ValidationError{Field: field, Message: "required field missing", Code: "REQUIRED_FIELD_MISSING"})
		}
	}

	for name, value := range input {
		prop, ok := schema.Properties[name]
		if !ok {
			if !schema.AdditionalProperties {
				errs = append(errs, ValidationError{Field: name, Message: "field not allowed in schema", Code: "EXTRA_FIELD"})
			}
			continue
		}
		if value == nil {
			continue
		}
		errs = append(errs, validateField(name, value, prop)...)
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateField(name string, value interface{}, prop Property) []ValidationError {
	if err := validateType(value, prop.Type); err != nil {
		return []ValidationError{{Field: name, Message: err.Error(), Code: "INVALID_TYPE"}}
	}

	var errs []ValidationError
	add := func(code, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf(format, args...), Code: code})
	}

	switch v := value.(type) {
	case string:
		if prop.MinLength != nil && len(strings.TrimSpace(v)) < *prop.MinLength {
			add("MIN_LENGTH_VIOLATION", "value must be at least %d characters", *prop.MinLength)
		}
		if prop.MaxLength != nil && len(v) > *prop.MaxLength {
			add("MAX_LENGTH_VIOLATION", "value must be at most %d characters", *prop.MaxLength)
		}
		if prop.Pattern != nil {
			if matched, err := regexp.MatchString(*prop.Pattern, v); err != nil || !matched {
				add("PATTERN_MISMATCH", "value must match pattern %s", *prop.Pattern)
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, v) {
			add("INVALID_ENUM_VALUE", "value must be one of %v", prop.Enum)
		}
	case float64:
		if prop.Minimum != nil && v < *prop.Minimum {
			add("MINIMUM_VIOLATION", "value must be >= %v", *prop.Minimum)
		}
		if prop.Maximum != nil && v > *prop.Maximum {
			add("MAXIMUM_VIOLATION", "value must be <= %v", *prop.Maximum)
		}
	case []interface{}:
		if prop.Items != nil {
			for i, item := range v {
				errs = append(errs, validateField(fmt.Sprintf("%s[%d]", name, i), item, *prop.Items)...)
			}
		}
	case map[string]interface{}:
		if prop.Properties != nil {
			nested := ValidateInput(v, JSONSchema{
				Type:                 "object",
				Properties:           prop.Properties,
				Required:             prop.Required,
				AdditionalProperties: true,
			})
			for _, e := range nested.Errors {
				errs = append(errs, ValidationError{Field: name + "." + e.Field, Message: e.Message, Code: e.Code})
			}
		}
	}

	return errs
}

// validateType accepts the shapes encoding/json produces, so integers arrive
// as whole float64 values.
func validateType(value interface{}, expected string) error {
	ok := true
	switch expected {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, int, int32, int64:
		default:
			ok = false
		}
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			ok = v == math.Trunc(v)
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", expected, value)
	}
	return nil
}

// ValidateActivityNaming enforces domain.subdomain.action job types.
func ValidateActivityNaming(activityID string) error {
	if !activityPattern.MatchString(activityID) {
		return fmt.Errorf("activity ID must follow format: domain.subdomain.action (e.g., crm.stage.transition)")
	}
	return nil
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors reports whether field or any of its children failed.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			return true
		}
	}
	return false
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
