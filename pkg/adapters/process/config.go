// Package process executes actions as local subprocesses. It follows a
// strict registry pattern: only commands declared in the configuration file
// (the allow-list) can ever run, and slot values reach the process through
// environment variables rather than argv, which rules out flag injection.
package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActionConfig declares one external command an action name may invoke.
type ActionConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of actions.yaml.
type ConfigFile struct {
	Actions []ActionConfig `yaml:"actions" json:"actions"`
}

// LoadActions reads a configuration file (YAML or JSON) and returns a map
// of action names to configs. A missing file is treated as "no actions
// configured" and returns an empty map.
func LoadActions(path string) (map[string]ActionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ActionConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read actions config: %w", err)
	}

	var cfg ConfigFile
	ext := strings.ToLower(filepath.Ext(path))

	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse actions config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse actions config %s: %w", path, err)
		}
	}

	actionMap := make(map[string]ActionConfig)
	for _, action := range cfg.Actions {
		if action.Name == "" {
			continue
		}
		actionMap[action.Name] = action
	}

	return actionMap, nil
}
