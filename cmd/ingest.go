package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/auth"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/bulk"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/datasets"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/orchestrate"
)

func ingestCmd() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Transform an MD ALL file and load it via a Bulk API 2.0 ingest job",
		ArgsUsage: "<dataset-key> <input-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mapping",
				Aliases: []string{"m"},
				Usage:   "Mapping spec file for the dataset (overrides the registered converter)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Normalized CSV output path",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("usage: ingest <dataset-key> <input-file>")
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

			deps := &orchestrate.Deps{
				Config:   cfg,
				Tokens:   auth.NewClientCredentials(cfg.Salesforce),
				Registry: registry,
				Clock:    bulk.RealClock{},
			}
			summary, err := orchestrate.IngestDataset(ctx, deps, orchestrate.IngestRequest{
				DatasetKey: key,
				InputPath:  input,
				OutPath:    cmd.String("out"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Ingest done. JobID=%s\n", summary.JobID)
			fmt.Printf("  Normalized: %s\n", summary.NormalizedPath)
			fmt.Printf("  Success   : %s\n", summary.Reports.Success)
			fmt.Printf("  Errors    : %s\n", summary.Reports.Error)
			return nil
		},
	}
}
