package transform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnMapping selects one source column and names its target field. Exactly
// one of Index or Name must be set: Index addresses headerless sources
// positionally (zero-based), Name addresses headed sources by column name.
type ColumnMapping struct {
	Index *int   `yaml:"index"`
	Name  string `yaml:"name"`
	Field string `yaml:"field"`
}

// ConstantColumn appends a literal value as a new column on every row.
type ConstantColumn struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// MappingSpec declares how one legacy delimited file becomes a Bulk-API-ready
// CSV. Loaded once per invocation and immutable afterwards.
type MappingSpec struct {
	DatasetKey      string           `yaml:"dataset_key"`
	SFObject        string           `yaml:"sf_object"`
	Operation       string           `yaml:"operation"`
	ExternalIDField string           `yaml:"external_id_field"`
	Mapping         []ColumnMapping  `yaml:"mapping"`
	SourceEncoding  string           `yaml:"source_encoding"`
	Candidates      []string         `yaml:"encoding_candidates"`
	Delimiter       string           `yaml:"delimiter"`
	HasHeader       bool             `yaml:"has_header"`
	LineEnding      string           `yaml:"line_ending"`
	Constants       []ConstantColumn `yaml:"constant_columns"`
	OwnerIDColumn   string           `yaml:"owner_id_column"`
	OwnerIDValue    string           `yaml:"owner_id_value"`
	OutputCSV       string           `yaml:"output_csv"`
}

// LoadSpec reads and validates a mapping spec from a YAML file.
func LoadSpec(path string) (*MappingSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping spec: %w", err)
	}
	var spec MappingSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse mapping spec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("mapping spec %s: %w", path, err)
	}
	return &spec, nil
}

// Validate checks structural requirements before any file is touched.
func (s *MappingSpec) Validate() error {
	if len(s.Mapping) == 0 {
		return fmt.Errorf("mapping must declare at least one column")
	}
	for i, m := range s.Mapping {
		if m.Field == "" {
			return fmt.Errorf("mapping[%d] has no target field", i)
		}
		hasIndex := m.Index != nil
		hasName := m.Name != ""
		if hasIndex == hasName {
			return fmt.Errorf("mapping[%d] (%s) must set exactly one of index or name", i, m.Field)
		}
		if hasName && !s.HasHeader {
			return fmt.Errorf("mapping[%d] (%s) selects column %q by name but the source has no header", i, m.Field, m.Name)
		}
	}
	for i, c := range s.Constants {
		if c.Field == "" {
			return fmt.Errorf("constant_columns[%d] has no field name", i)
		}
	}
	if d := s.delimiter(); len([]rune(d)) != 1 {
		return fmt.Errorf("delimiter %q must be a single character", s.Delimiter)
	}
	switch s.LineEnding {
	case "", "LF", "CRLF":
	default:
		return fmt.Errorf("line_ending %q must be LF or CRLF", s.LineEnding)
	}
	return nil
}

// constantColumns folds the legacy owner-column shorthand into the general
// constant-column list, owner column first to keep the historical layout.
func (s *MappingSpec) constantColumns() []ConstantColumn {
	out := make([]ConstantColumn, 0, len(s.Constants)+1)
	if s.OwnerIDColumn != "" {
		out = append(out, ConstantColumn{Field: s.OwnerIDColumn, Value: s.OwnerIDValue})
	}
	return append(out, s.Constants...)
}

func (s *MappingSpec) delimiter() string {
	if s.Delimiter == "" {
		return ","
	}
	return s.Delimiter
}

func (s *MappingSpec) delimiterRune() rune {
	return []rune(s.delimiter())[0]
}

func (s *MappingSpec) lineEnding() string {
	if s.LineEnding == "CRLF" {
		return "\r\n"
	}
	return "\n"
}

// encodingCandidates returns the probe order for source_encoding: auto. The
// legacy ALL files are usually Shift-JIS, so CP932 is tried first.
func (s *MappingSpec) encodingCandidates() []string {
	if len(s.Candidates) > 0 {
		return s.Candidates
	}
	return []string{"cp932", "utf-8"}
}
