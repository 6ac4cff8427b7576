// Package pipeline defines the YAML pipeline format: a named set of
// shell tasks with explicit dependencies between them.
package pipeline

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// Pipeline is one parsed pipeline definition.
type Pipeline struct {
	Name  string `yaml:"name"`
	Tasks []Task `yaml:"tasks"`
}

// Task is a single unit of work: a shell command plus the names of the
// tasks that must finish before it starts.
type Task struct {
	Name  string            `yaml:"name"`
	Run   string            `yaml:"run"`
	Needs []string          `yaml:"needs,omitempty"`
	Env   map[string]string `yaml:"env,omitempty"`
}

// Parse decodes a pipeline definition from YAML.
func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, srvErrors.NewValidationError("invalid pipeline yaml: %v", err)
	}
	return &p, nil
}

// Load reads and parses a pipeline definition file.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline file: %w", err)
	}
	return Parse(data)
}

// Lookup returns the task with the given name.
func (p *Pipeline) Lookup(name string) (*Task, bool) {
	for i := range p.Tasks {
		if p.Tasks[i].Name == name {
			return &p.Tasks[i], true
		}
	}
	return nil, false
}

// Validate checks the pipeline definition: a non-empty name, at least
// one task, unique task names with commands, needs references that
// resolve, and no dependency cycles. Every violation comes back as a
// ValidationError.
func (p *Pipeline) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return srvErrors.NewValidationError("pipeline name is required")
	}
	if len(p.Tasks) == 0 {
		return srvErrors.NewValidationError("pipeline %q has no tasks", p.Name)
	}

	names := make(map[string]bool, len(p.Tasks))
	for i, t := range p.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return srvErrors.NewValidationError("task %d has no name", i)
		}
		if names[t.Name] {
			return srvErrors.NewValidationError("duplicate task name %q", t.Name)
		}
		names[t.Name] = true
		if strings.TrimSpace(t.Run) == "" {
			return srvErrors.NewValidationError("task %q has no run command", t.Name)
		}
	}
	for _, t := range p.Tasks {
		for _, need := range t.Needs {
			if !names[need] {
				return srvErrors.NewValidationError("task %q needs unknown task %q", t.Name, need)
			}
		}
	}

	_, err := p.TopoOrder()
	return err
}

// TopoOrder returns the task names in a dependency-respecting order,
// deterministic for a given definition (ties broken alphabetically,
// Kahn's algorithm). It fails with a ValidationError naming the tasks
// on a cycle.
//
// Needs references must already resolve; Validate checks that first.
func (p *Pipeline) TopoOrder() ([]string, error) {
	forward := make(map[string][]string, len(p.Tasks))
	inDegree := make(map[string]int, len(p.Tasks))
	for _, t := range p.Tasks {
		inDegree[t.Name] = 0
	}
	for _, t := range p.Tasks {
		seen := make(map[string]bool, len(t.Needs))
		for _, need := range t.Needs {
			if _, ok := inDegree[need]; !ok || seen[need] {
				continue
			}
			seen[need] = true
			forward[need] = append(forward[need], t.Name)
			inDegree[t.Name]++
		}
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(p.Tasks))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		successors := forward[name]
		sort.Strings(successors)
		for _, succ := range successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(inDegree) {
		var stuck []string
		for name, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, srvErrors.NewValidationError("pipeline contains a cycle involving tasks: %s",
			strings.Join(stuck, ", "))
	}
	return order, nil
}
