// Package seed provides the initial field catalog, either built in or
// loaded from a YAML or TOML file.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"futmap/internal/domain"
	"futmap/internal/models"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a seed file.
type File struct {
	Fields []models.Field `yaml:"fields" toml:"fields"`
}

// Load reads fields from path. The format is picked by extension:
// .yaml/.yml or .toml.
func Load(path string) ([]models.Field, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrValidationFailed, path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrValidationFailed, path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, domain.Validation("%s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, domain.Validation("unsupported seed format %q", ext)
	}

	if len(file.Fields) == 0 {
		return nil, domain.Validation("%s: no fields", path)
	}
	for i := range file.Fields {
		if err := file.Fields[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidationFailed, err)
		}
	}
	return file.Fields, nil
}

// Fields returns the catalog from path, or the demo catalog when path is empty.
func Fields(path string) ([]models.Field, error) {
	if path == "" {
		return DemoFields(), nil
	}
	return Load(path)
}
