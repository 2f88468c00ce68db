// pkg/registry/registry.go
//
// Package registry loads the JSON stage registry that seeds new CRM boards.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

type StageRegistry struct {
	Version     string            `json:"version"`
	LastUpdated string            `json:"lastUpdated"`
	Stages      []StageDefinition `json:"stages"`
}

type StageDefinition struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Color            string `json:"color"`
	EmailSubject     string `json:"emailSubject,omitempty"`
	EmailTemplate    string `json:"emailTemplate,omitempty"`
	WhatsAppTemplate string `json:"whatsappTemplate,omitempty"`
}

func LoadRegistry(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse stage registry %s: %w", path, err)
	}
	if len(reg.Stages) == 0 {
		return nil, fmt.Errorf("stage registry %s has no stages", path)
	}
	seen := make(map[string]bool, len(reg.Stages))
	for i, s := range reg.Stages {
		if s.ID == "" || s.Name == "" {
			return nil, fmt.Errorf("stage registry %s: entry %d needs id and name", path, i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("stage registry %s: duplicate stage id %q", path, s.ID)
		}
		seen[s.ID] = true
	}
	return &reg, nil
}
