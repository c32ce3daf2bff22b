package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	errs "github.com/p-blackswan/repo-intel/internal/errors"
)

// Definition is a named workflow stored on disk.
type Definition struct {
	Name         string `json:"name" yaml:"name"`
	WorkflowType string `json:"workflow_type" yaml:"workflow_type"`
	Tasks        []Task `json:"tasks" yaml:"tasks"`
}

// Validate checks the definition shape and its dependency graph.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: workflow definition needs a name", errs.ErrInvalidRequest)
	}
	switch d.WorkflowType {
	case TypeSequential, TypeParallel, TypeConditional:
	default:
		return fmt.Errorf("%w: unknown workflow type: %s", errs.ErrInvalidRequest, d.WorkflowType)
	}
	if len(d.Tasks) == 0 {
		return fmt.Errorf("%w: workflow %s has no tasks", errs.ErrInvalidRequest, d.Name)
	}
	for _, t := range d.Tasks {
		if t.AgentName == "" {
			return fmt.Errorf("%w: workflow %s has a task without an agent_name", errs.ErrInvalidRequest, d.Name)
		}
	}
	_, err := dependencyWaves(d.Tasks)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", d.Name, err)
	}
	return nil
}

// LoadDefinition reads and validates a YAML workflow file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing workflow file %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
