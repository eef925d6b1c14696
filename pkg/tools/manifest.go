package tools

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Description is one tool's static metadata: what the orchestrator's
// planner step shows the model so it can decide which tool to call and
// with what arguments, parsed the same way the teacher's pkg/mcp/params.go
// parses its YAML-described MCP server parameters.
type Description struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Parameters  map[string]any `yaml:"parameters" json:"parameters"`
}

var catalogManifest map[string]Description

func init() {
	var parsed struct {
		Tools []Description `yaml:"tools"`
	}
	if err := yaml.Unmarshal(catalogYAML, &parsed); err != nil {
		panic(fmt.Sprintf("tools: embedded catalog.yaml is invalid: %v", err))
	}
	catalogManifest = make(map[string]Description, len(parsed.Tools))
	for _, d := range parsed.Tools {
		catalogManifest[d.Name] = d
	}
}

// Describe returns the static metadata for every registered tool, in the
// order Register was called for the closed catalog (spec §4.6). A
// registered name with no catalog.yaml entry surfaces with an empty
// Description/Parameters rather than failing — catalog.yaml documents the
// five built-in tools; nothing prevents a caller from registering more for
// local testing.
func (r *Registry) Describe() []Description {
	out := make([]Description, 0, len(r.order))
	for _, name := range r.order {
		if d, ok := catalogManifest[name]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, Description{Name: name})
	}
	return out
}
