package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/datasets"
)

func convertCmd() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Run only the ALL-to-CSV transform step, without touching Salesforce",
		ArgsUsage: "<dataset-key> <input-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mapping",
				Aliases: []string{"m"},
				Usage:   "Mapping spec file for the dataset",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Normalized CSV output path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("usage: convert <dataset-key> <input-file>")
			}
			key := cmd.Args().Get(0)
			input := cmd.Args().Get(1)

			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			extra := map[string]string{}
			if mapping := cmd.String("mapping"); mapping != "" {
				extra[key] = mapping
			}
			registry, err := datasets.New(extra)
			if err != nil {
				return err
			}

			desc, err := registry.Get(key)
			if err != nil {
				return err
			}

			outPath, err := desc.ResolveOutput(cfg.Ingest.MappingDir, cfg.Ingest.OutputDir, cmd.String("out"))
			if err != nil {
				return err
			}
			normalized, err := desc.Convert(cfg.Ingest.MappingDir, input, outPath)
			if err != nil {
				return err
			}

			fmt.Printf("Converted: %s\n", normalized)
			return nil
		},
	}
}
