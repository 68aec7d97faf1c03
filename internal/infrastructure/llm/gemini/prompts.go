package gemini

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

type StagePrompt struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Temperature float64 `yaml:"temperature"`
}

type Prompts struct {
	Main     StagePrompt `yaml:"main"`
	Affinity StagePrompt `yaml:"affinity"`
	Insights StagePrompt `yaml:"insights"`
}

// LoadPrompts reads the prompt catalog from path, or the embedded default
// when path is empty.
func LoadPrompts(path string) (Prompts, error) {
	raw := defaultPrompts
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Prompts{}, fmt.Errorf("read prompts file: %w", err)
		}
		raw = data
	}
	return parsePrompts(raw)
}

func parsePrompts(raw []byte) (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts yaml: %w", err)
	}
	for name, stage := range map[string]StagePrompt{"main": p.Main, "affinity": p.Affinity, "insights": p.Insights} {
		if strings.TrimSpace(stage.System) == "" {
			return Prompts{}, fmt.Errorf("prompts: stage %q has no system prompt", name)
		}
	}
	return p, nil
}
