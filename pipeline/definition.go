package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/validation"
)

// StepFactory creates steps from their declarative form.
type StepFactory interface {
	Create(spec step.Spec) (step.Step, error)
}

// Definition is a YAML pipeline document: the engine configuration plus the
// ordered step list.
type Definition struct {
	Config      `yaml:",inline"`
	Description string      `yaml:"description,omitempty"`
	Steps       []step.Spec `yaml:"steps"`
}

// ParseDefinition decodes a YAML document. ${VAR} references are expanded
// from the environment first; unknown fields are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)

	var d Definition
	if err := dec.Decode(&d); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "parse pipeline definition")
	}
	v := validation.New().NotEmpty("steps", len(d.Steps))
	for i, s := range d.Steps {
		v.Required(fmt.Sprintf("steps[%d].operation", i), s.Operation)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDefinition reads and parses a YAML file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("pipeline definition", path)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "read "+path)
	}
	d, err := ParseDefinition(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "load "+path)
	}
	if d.Name == "" {
		d.Name = trimExt(filepath.Base(path))
	}
	return d, nil
}

// Build creates the steps through f and returns a validated Pipeline.
func (d *Definition) Build(f StepFactory, opts ...Option) (*Pipeline, error) {
	steps := make([]step.Step, 0, len(d.Steps))
	for i, spec := range d.Steps {
		s, err := f.Create(spec)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration,
				fmt.Sprintf("pipeline %q: step %d (%s)", d.Name, i, spec.Operation))
		}
		steps = append(steps, s)
	}
	return New(d.Config, steps, opts...)
}

// DefinitionLoader finds pipeline definitions by name in a set of
// directories.
type DefinitionLoader struct {
	dirs []string
}

// NewDefinitionLoader creates a loader that searches dirs in order.
func NewDefinitionLoader(dirs ...string) *DefinitionLoader {
	return &DefinitionLoader{dirs: dirs}
}

// Load returns the first {name}.yaml or {name}.yml found, looking one
// directory level deep as well.
func (l *DefinitionLoader) Load(name string) (*Definition, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			candidates := []string{filepath.Join(dir, name+ext)}
			matches, _ := filepath.Glob(filepath.Join(dir, "*", name+ext))
			candidates = append(candidates, matches...)
			for _, path := range candidates {
				if _, err := os.Stat(path); err != nil {
					continue
				}
				return LoadDefinition(path)
			}
		}
	}
	return nil, apperrors.NotFound("pipeline definition", name).WithDetail("dirs", l.dirs)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
