package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(map[string]interface{}{
		"salesforce.api_version": "62.0",
		"salesforce.operation":   "upsert",

		// Bulk API query jobs usually finish slower than they page, so the
		// export loop polls tighter but waits longer overall.
		"export.poll_interval": "2s",
		"export.poll_timeout":  "1800s",
		"export.max_records":   100000,
		"export.output_dir":    "output",
		"export.dedupe_header": true,

		"ingest.poll_interval": "5s",
		"ingest.poll_timeout":  "600s",
		"ingest.output_dir":    "output",
		"ingest.mapping_dir":   "mappings",

		"logging.level":  "info",
		"logging.format": "pretty",
	}, "."), nil)
}
