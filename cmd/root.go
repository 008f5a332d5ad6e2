package cmd

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/config"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "sfbulk",
		Version: version,
		Usage:   "Move MD master data between legacy ALL exports and the Salesforce Bulk API 2.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("SFBULK_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("SFBULK_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			exportCmd(),
			ingestCmd(),
			convertCmd(),
			datasetsCmd(),
		},
	}
}

// loadConfig resolves the config file and applies the log-level flag.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if v := cmd.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	applyLogLevel(cfg.Logging.Level)
	return cfg, nil
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping info")
		return
	}
	zerolog.SetGlobalLevel(parsed)
}
