package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/datasets"
)

func datasetsCmd() *cli.Command {
	return &cli.Command{
		Name:  "datasets",
		Usage: "List the registered dataset keys",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			registry, err := datasets.New(nil)
			if err != nil {
				return err
			}
			for _, key := range registry.Keys() {
				fmt.Println(key)
			}
			return nil
		},
	}
}
