// Package orch coordinates the provisioning phases: it runs agent sessions,
// extracts their results, and advances the project state.
package orch

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/computer-reinvention/infera/pkg/core"
)

const (
	yamlFenceOpen = "```yaml"
	fenceClose    = "```"
)

// ExtractYAMLBlock returns the contents of the first fenced yaml code block
// in text. Later blocks are never considered: the first block is the
// contract, and a malformed first block means no result.
func ExtractYAMLBlock(text string) (string, bool) {
	start := strings.Index(text, yamlFenceOpen)
	if start == -1 {
		return "", false
	}
	start += len(yamlFenceOpen)

	end := strings.Index(text[start:], fenceClose)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}

// ExtractConfig parses the first fenced yaml block of an analysis transcript
// into a project configuration. Returns nil when no block exists or the
// first block does not parse as YAML.
func ExtractConfig(text string) *core.ProjectConfiguration {
	block, ok := ExtractYAMLBlock(text)
	if !ok || block == "" {
		return nil
	}

	var cfg core.ProjectConfiguration
	if err := yaml.Unmarshal([]byte(block), &cfg); err != nil {
		return nil
	}
	return &cfg
}
