package stagetransition

import "innovation-crm/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "startupId", "stageId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "string",
				Description: "Owner of the tracked startup",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(128),
			},
			"startupId": {
				Type:        "string",
				Description: "Saved startup document id",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(128),
			},
			"stageId": {
				Type:        "string",
				Description: "Target pipeline stage",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(64),
			},
		},
		// process instances carry unrelated variables
		AdditionalProperties: true,
	}
}

func intPtr(i int) *int {
	return &i
}
