package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelsYAML represents the structure of an AI_MODELS_FILE document:
//
//	models:
//	  - mistralai/mistral-7b-instruct:free
//	  - google/gemma-2-2b-it:free
type ModelsYAML struct {
	Models []string `yaml:"models"`
}

// LoadModelsFile loads the ordered model fallback list from a YAML file.
func LoadModelsFile(filePath string) ([]string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("models file not found: %s", absPath)
	}

	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	var doc ModelsYAML
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	models := normalizeModels(doc.Models)
	if len(models) == 0 {
		return nil, fmt.Errorf("no models found in models file: %s", filePath)
	}
	return models, nil
}
