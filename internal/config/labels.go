package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"clubadmin/internal/inline"
)

// labelsFileVersion is the only supported labels file version.
const labelsFileVersion = 1

// LabelsFile is the YAML shape of a labels override file:
//
//	version: 1
//	messages:
//	  saved: "Enregistré"
//	badges:
//	  status:
//	    active: {label: "Actif", color: "#198754"}
type LabelsFile struct {
	Version  int                             `yaml:"version"`
	Messages MessagesFile                    `yaml:"messages"`
	Badges   map[string]map[string]BadgeFile `yaml:"badges"`
}

// MessagesFile overrides engine strings; empty entries keep the default.
type MessagesFile struct {
	NotApplicable string `yaml:"not_applicable"`
	Empty         string `yaml:"empty"`
	Saved         string `yaml:"saved"`
	SaveFailed    string `yaml:"save_failed"`
	Saving        string `yaml:"saving"`
	Cancel        string `yaml:"cancel"`
	AgeUnit       string `yaml:"age_unit"`
}

// BadgeFile is one badge entry.
type BadgeFile struct {
	Label string `yaml:"label"`
	Color string `yaml:"color"`
}

// LoadLabels builds the immutable label set from defaults, overridden by the
// YAML file at path. An empty path yields the defaults alone.
// PRE: defaults is keyed by field then raw value
// POST: The returned Labels shares no maps with defaults
func LoadLabels(path string, defaults map[string]map[string]inline.Badge) (inline.Labels, error) {
	if path == "" {
		return inline.NewLabels(defaults, inline.Messages{}), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return inline.Labels{}, fmt.Errorf("failed to read labels file: %w", err)
	}
	return ParseLabels(data, defaults)
}

// ParseLabels is LoadLabels on file contents.
func ParseLabels(data []byte, defaults map[string]map[string]inline.Badge) (inline.Labels, error) {
	var file LabelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return inline.Labels{}, fmt.Errorf("failed to parse labels file: %w", err)
	}
	if file.Version != labelsFileVersion {
		return inline.Labels{}, fmt.Errorf("unsupported labels version: %d (expected %d)", file.Version, labelsFileVersion)
	}

	merged := make(map[string]map[string]inline.Badge, len(defaults)+len(file.Badges))
	for field, table := range defaults {
		merged[field] = make(map[string]inline.Badge, len(table))
		for value, b := range table {
			merged[field][value] = b
		}
	}
	for field, table := range file.Badges {
		if merged[field] == nil {
			merged[field] = make(map[string]inline.Badge, len(table))
		}
		for value, b := range table {
			if b.Color != "" && !strings.HasPrefix(b.Color, "#") {
				return inline.Labels{}, fmt.Errorf("badge %s.%s: color must be a #hex value, got %q", field, value, b.Color)
			}
			base := merged[field][value]
			if b.Label != "" {
				base.Label = b.Label
			}
			if b.Color != "" {
				base.Color = b.Color
			}
			merged[field][value] = base
		}
	}

	m := file.Messages
	return inline.NewLabels(merged, inline.Messages{
		NotApplicable: m.NotApplicable,
		Empty:         m.Empty,
		Saved:         m.Saved,
		SaveFailed:    m.SaveFailed,
		Saving:        m.Saving,
		Cancel:        m.Cancel,
		AgeUnit:       m.AgeUnit,
	}), nil
}
