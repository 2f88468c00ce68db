// internal/crm/stages/schema.go
package stages

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "innovation-crm/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

const stageListSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["id", "name"],
		"properties": {
			"id": {"type": "string", "minLength": 1, "maxLength": 64},
			"name": {"type": "string", "minLength": 1, "maxLength": 80},
			"color": {"type": "string"},
			"order": {"type": "integer", "minimum": 0},
			"emailSubject": {"type": "string", "maxLength": 300},
			"emailTemplate": {"type": "string", "maxLength": 20000},
			"whatsappTemplate": {"type": "string", "maxLength": 4096}
		}
	}
}`

var stageListLoader = gojsonschema.NewStringLoader(stageListSchema)

// ValidateStageList checks a stage list payload, typed or decoded JSON, and
// rejects duplicate ids.
func ValidateStageList(raw interface{}) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("stage list: %v", err))
	}
	var doc interface{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("stage list: %v", err))
	}

	result, err := gojsonschema.Validate(stageListLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return apperrors.NewValidationFailedError(fmt.Sprintf("stage list: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewValidationFailedError(strings.Join(errs, "; "))
	}

	if list, ok := doc.([]interface{}); ok {
		seen := make(map[string]bool, len(list))
		for _, item := range list {
			obj, _ := item.(map[string]interface{})
			id, _ := obj["id"].(string)
			if seen[id] {
				return apperrors.NewValidationFailedError(fmt.Sprintf("duplicate stage id %q", id))
			}
			seen[id] = true
		}
	}
	return nil
}
