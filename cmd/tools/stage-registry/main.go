// cmd/tools/stage-registry/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/crm/template"
	"innovation-crm/pkg/registry"
)

var registryPath string

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{initCmd, addCmd, updateCmd, validateCmd} {
		fs.StringVar(&registryPath, "path", "configs/stages.json", "Path to registry file")
	}

	force := initCmd.Bool("force", false, "Overwrite an existing registry")

	idAdd := addCmd.String("id", "", "Stage ID (e.g., contrato)")
	name := addCmd.String("name", "", "Column title (e.g., Contrato)")
	color := addCmd.String("color", "", "Column color classes")
	subject := addCmd.String("subject", "", "Email subject template")
	emailTemplate := addCmd.String("email", "", "Email body template, or @file")
	whatsAppTemplate := addCmd.String("whatsapp", "", "WhatsApp template, or @file")

	idUpdate := updateCmd.String("id", "", "Stage ID to update")
	field := updateCmd.String("field", "", "Field to update (name, color, emailSubject, emailTemplate, whatsappTemplate)")
	value := updateCmd.String("value", "", "New value for the field, or @file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		if err := initRegistry(*force); err != nil {
			fmt.Printf("Error writing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote built-in stages to %s\n", registryPath)

	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *name == "" {
			fmt.Println("Error: id and name are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		stage := registry.StageDefinition{
			ID:           *idAdd,
			Name:         *name,
			Color:        *color,
			EmailSubject: *subject,
		}
		var err error
		if stage.EmailTemplate, err = readValue(*emailTemplate); err == nil {
			stage.WhatsAppTemplate, err = readValue(*whatsAppTemplate)
		}
		if err == nil {
			err = addStage(stage)
		}
		if err != nil {
			fmt.Printf("Error adding stage: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added stage: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" {
			fmt.Println("Error: id and field are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		v, err := readValue(*value)
		if err == nil {
			err = updateStage(*idUpdate, *field, v)
		}
		if err != nil {
			fmt.Printf("Error updating stage: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated stage %s, field %s\n", *idUpdate, *field)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// readValue returns s, or the contents of the file when s starts with @.
func readValue(s string) (string, error) {
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}
	data, err := os.ReadFile(strings.TrimPrefix(s, "@"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func initRegistry(force bool) error {
	if _, err := os.Stat(registryPath); err == nil && !force {
		return fmt.Errorf("%s already exists, pass -force to overwrite", registryPath)
	}

	reg := &registry.StageRegistry{Version: "1.0.0"}
	for _, s := range stages.DefaultStages() {
		reg.Stages = append(reg.Stages, registry.StageDefinition{
			ID:               s.ID,
			Name:             s.Name,
			Color:            s.Color,
			EmailSubject:     s.EmailSubject,
			EmailTemplate:    s.EmailTemplate,
			WhatsAppTemplate: s.WhatsAppTemplate,
		})
	}
	return saveRegistry(reg, registryPath)
}

func addStage(stage registry.StageDefinition) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, existing := range reg.Stages {
		if existing.ID == stage.ID {
			return fmt.Errorf("stage with ID %s already exists", stage.ID)
		}
	}

	reg.Stages = append(reg.Stages, stage)
	return saveRegistry(reg, registryPath)
}

func updateStage(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	found := false
	for i := range reg.Stages {
		if reg.Stages[i].ID != id {
			continue
		}
		found = true
		switch field {
		case "name":
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("name cannot be empty")
			}
			reg.Stages[i].Name = value
		case "color":
			reg.Stages[i].Color = value
		case "emailSubject":
			reg.Stages[i].EmailSubject = value
		case "emailTemplate":
			reg.Stages[i].EmailTemplate = value
		case "whatsappTemplate":
			reg.Stages[i].WhatsAppTemplate = value
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		break
	}

	if !found {
		return fmt.Errorf("stage with ID %s not found", id)
	}
	return saveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, s := range reg.Stages {
		if template.IsBlank(s.EmailTemplate) && template.IsBlank(s.WhatsAppTemplate) {
			fmt.Printf("  %s: no templates, moving a startup here sends nothing\n", s.ID)
		}
	}

	fmt.Printf("Registry validation passed. Found %d stages.\n", len(reg.Stages))
	return nil
}

func saveRegistry(reg *registry.StageRegistry, path string) error {
	reg.LastUpdated = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: stage-registry <command> [flags]

Commands:
  init     Write the built-in stages to a new registry file
  add      Append a stage to the registry
  update   Change one field of a stage
  validate Validate the registry file
  help     Show this help message

Examples:
  stage-registry init -path configs/stages.json
  stage-registry add -id contrato -name Contrato -subject "{{senderCompany}} - Contrato" -email @contrato.txt
  stage-registry update -id poc -field whatsappTemplate -value @poc-whatsapp.txt
  stage-registry validate -path configs/stages.json

Use 'stage-registry <command> -h' for more information about a command.
` + "\n")
}
