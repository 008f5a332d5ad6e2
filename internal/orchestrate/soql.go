package orchestrate

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ExportFieldMapping names one field to pull. Object is optional; entries
// tagged with a different object than the export target are skipped with a
// warning rather than breaking the run.
type ExportFieldMapping struct {
	API    string `yaml:"api"`
	Object string `yaml:"object"`
}

// QueryOptions are the optional SOQL clauses for generated queries.
type QueryOptions struct {
	Where   string `yaml:"where"`
	OrderBy string `yaml:"order_by"`
	Limit   string `yaml:"limit"`
}

// ExportConfig is the declarative export definition: target object, fields,
// and either an explicit SOQL override or generation options.
type ExportConfig struct {
	ObjectAPI    string               `yaml:"object_api"`
	SOQL         string               `yaml:"soql"`
	Mappings     []ExportFieldMapping `yaml:"mappings"`
	QueryOptions QueryOptions         `yaml:"query_options"`
	Out          string               `yaml:"out"`
	Page         int                  `yaml:"page"`
	PKChunking   string               `yaml:"pk_chunking"`
	Operation    string               `yaml:"operation"`
}

// LoadExportConfig reads an export definition from YAML.
func LoadExportConfig(path string) (*ExportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export config: %w", err)
	}
	var cfg ExportConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse export config %s: %w", path, err)
	}
	if cfg.ObjectAPI == "" {
		return nil, fmt.Errorf("export config %s has no object_api", path)
	}
	return &cfg, nil
}

// ResolveSOQL returns the query to run: the explicit soql if present,
// otherwise one generated from the field mappings, with no existence check.
func (c *ExportConfig) ResolveSOQL() (string, error) {
	return c.ResolveSOQLAgainst(nil)
}

// ResolveSOQLAgainst is ResolveSOQL with a field-existence check: generated
// fields failing the predicate are dropped with a warning instead of
// producing a query the API would reject. A nil predicate skips the check.
// The predicate is typically backed by a describe call on the target object.
func (c *ExportConfig) ResolveSOQLAgainst(exists func(string) bool) (string, error) {
	if soql := strings.TrimSpace(c.SOQL); soql != "" {
		return soql, nil
	}

	var fields []string
	var wrongObject []string
	var missing []string
	for _, m := range c.Mappings {
		if m.API == "" {
			continue
		}
		if m.Object != "" && m.Object != c.ObjectAPI {
			wrongObject = append(wrongObject, m.API)
			continue
		}
		if exists != nil && !exists(m.API) {
			missing = append(missing, m.API)
			continue
		}
		fields = append(fields, m.API)
	}
	if len(wrongObject) > 0 {
		log.Warn().
			Str("object", c.ObjectAPI).
			Strs("fields", wrongObject).
			Msg("ignoring fields mapped to a different object")
	}
	if len(missing) > 0 {
		log.Warn().
			Str("object", c.ObjectAPI).
			Strs("fields", missing).
			Msg("ignoring fields the object does not expose")
	}

	return BuildSOQL(c.ObjectAPI, fields, c.QueryOptions.Where, c.QueryOptions.OrderBy, c.QueryOptions.Limit), nil
}

// BuildSOQL assembles a flat single-object query. Id is always selected
// first; duplicates are removed with order preserved. Relationship fields and
// subqueries are out of scope for Bulk API CSV results.
func BuildSOQL(object string, fields []string, where, orderBy, limit string) string {
	cols := dedupeKeepOrder(append([]string{"Id"}, fields...))
	soql := "SELECT " + strings.Join(cols, ", ") + " FROM " + object
	if where != "" {
		soql += " WHERE " + where
	}
	if orderBy != "" {
		soql += " ORDER BY " + orderBy
	}
	if limit != "" {
		soql += " LIMIT " + limit
	}
	return soql
}

func dedupeKeepOrder(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
