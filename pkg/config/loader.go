package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quarrydata/quarry/pkg/errors"
)

// File is the on-disk spec format: one YAML document holding any number of
// named pipelines.
type File struct {
	Pipelines []*Spec `yaml:"pipelines" json:"pipelines"`
}

// Load reads a spec file, substitutes ${VAR} environment references, applies
// defaults, and validates every pipeline in it.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: file path is controlled by the caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read spec file").
			WithDetail("path", path)
	}

	content := substituteEnvVars(string(data))

	var f File
	if err := yaml.Unmarshal([]byte(content), &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse spec file").
			WithDetail("path", path)
	}
	if len(f.Pipelines) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "spec file declares no pipelines").
			WithDetail("path", path)
	}

	seen := make(map[string]bool, len(f.Pipelines))
	for _, spec := range f.Pipelines {
		spec.ApplyDefaults()
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, errors.Newf(errors.ErrorTypeConfig, "pipeline %q declared twice", spec.Name).
				WithDetail("path", path)
		}
		seen[spec.Name] = true
	}
	return &f, nil
}

// Find returns the named pipeline from the file.
func (f *File) Find(name string) (*Spec, error) {
	for _, spec := range f.Pipelines {
		if spec.Name == name {
			return spec, nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeNotFound, "pipeline %q not found in spec file", name)
}

// Save writes the file as YAML, used to scaffold spec files.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal spec file")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write spec file").
			WithDetail("path", path)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
