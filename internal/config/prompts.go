package config

import (
	"fmt"
	"os"

	"github.com/futig/rag-chat/internal/entity"
	"gopkg.in/yaml.v3"
)

// LoadPrompts reads prompt overrides from a YAML file. Fields missing from the
// file keep their defaults; an empty path returns the defaults.
func LoadPrompts(path string) (entity.Prompts, error) {
	defaults := entity.DefaultPrompts()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Prompts{}, fmt.Errorf("read prompts file: %w", err)
	}

	var prompts entity.Prompts
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return entity.Prompts{}, fmt.Errorf("parse prompts YAML: %w", err)
	}

	return prompts.Merge(defaults), nil
}
