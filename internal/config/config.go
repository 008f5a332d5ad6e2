package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Salesforce SalesforceConfig `koanf:"salesforce"`
	Export     ExportConfig     `koanf:"export"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Logging    LoggingConfig    `koanf:"logging"`
}

type SalesforceConfig struct {
	ClientID        string `koanf:"client_id"`
	ClientSecret    string `koanf:"client_secret"`
	Domain          string `koanf:"domain"`
	TokenURL        string `koanf:"token_url"`
	InstanceURL     string `koanf:"instance_url"`
	APIVersion      string `koanf:"api_version"`
	Object          string `koanf:"object"`
	Operation       string `koanf:"operation"`
	ExternalIDField string `koanf:"external_id_field"`
}

type ExportConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	PollTimeout  time.Duration `koanf:"poll_timeout"`
	MaxRecords   int           `koanf:"max_records"`
	OutputDir    string        `koanf:"output_dir"`
	DedupeHeader bool          `koanf:"dedupe_header"`
}

type IngestConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
	PollTimeout  time.Duration `koanf:"poll_timeout"`
	OutputDir    string        `koanf:"output_dir"`
	MappingDir   string        `koanf:"mapping_dir"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from a TOML file (if provided) then overlays env vars.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Load defaults
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	// 2. Load TOML config file if provided
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, err
		}
	}

	// 3. Load env vars: SFB_SALESFORCE_CLIENT_ID -> salesforce.client_id
	// Only set env vars that have non-empty values to avoid overriding TOML config.
	if err := k.Load(env.ProviderWithValue("SFB_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "SFB_")),
			"_", ".", 1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	// 4. Handle convenience env vars carried over from the legacy scripts
	if v := os.Getenv("SF_API_VER"); v != "" {
		k.Set("salesforce.api_version", v)
	}
	if v := os.Getenv("SF_INSTANCE_URL"); v != "" {
		k.Set("salesforce.instance_url", v)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Accept "v62.0" and "62.0" alike; request paths always add the "v".
	cfg.Salesforce.APIVersion = strings.TrimPrefix(
		strings.TrimPrefix(cfg.Salesforce.APIVersion, "v"), "V")

	// Token URL can be derived from the org domain when not set explicitly.
	if cfg.Salesforce.TokenURL == "" && cfg.Salesforce.Domain != "" {
		cfg.Salesforce.TokenURL = "https://" + cfg.Salesforce.Domain + "/services/oauth2/token"
	}

	return &cfg, nil
}
