// Package orchestrate drives one bulk job at a time through its full
// lifecycle. Each invocation handles exactly one dataset or query; running
// several datasets means running several orchestrations, not sharing one.
package orchestrate

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/assemble"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/auth"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/bulk"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/config"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/transform"
)

// Deps carries everything an orchestration run needs, explicitly. Defaults
// come from the config struct, not ambient globals.
type Deps struct {
	Config   *config.Config
	Tokens   auth.Provider
	Registry *transform.Registry
	Clock    bulk.Clock
	HTTP     *http.Client
	RunID    string
}

func (d *Deps) runID() string {
	if d.RunID == "" {
		d.RunID = uuid.NewString()
	}
	return d.RunID
}

func (d *Deps) newClient(ctx context.Context) (*bulk.Client, error) {
	tok, err := d.Tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return bulk.NewClient(tok.InstanceURL, d.Config.Salesforce.APIVersion, tok.AccessToken, d.HTTP), nil
}

// ExportRequest describes one export run. When SOQL is empty and QueryConfig
// is set, the query is generated from the config's field mappings after a
// describe call on the target object filters out fields it does not expose.
type ExportRequest struct {
	SOQL        string
	QueryConfig *ExportConfig
	Operation   bulk.JobKind // KindQuery or KindQueryAll
	Object      string       // used only for the default output name
	OutPath     string
	MaxRecords  int
	PKChunking  string
}

// ExportSummary is the structured result printed after a successful export.
type ExportSummary struct {
	JobID string
	Pages int
	Rows  int // approximate, see assemble.ExportWriter.Summary
	Path  string
	SOQL  string
}

// ExportJob runs create → poll → paged retrieval → assembled CSV.
func ExportJob(ctx context.Context, deps *Deps, req ExportRequest) (ExportSummary, error) {
	cfg := deps.Config
	logger := log.With().Str("run_id", deps.runID()).Logger()

	client, err := deps.newClient(ctx)
	if err != nil {
		return ExportSummary{}, err
	}

	soql := req.SOQL
	if soql == "" && req.QueryConfig != nil {
		soql, err = resolveQueryConfig(ctx, client, req.QueryConfig)
		if err != nil {
			return ExportSummary{}, err
		}
	}
	if soql == "" {
		return ExportSummary{}, fmt.Errorf("nothing to export: no soql and no query config")
	}

	job, err := client.CreateQueryJob(ctx, bulk.QueryJobRequest{
		Query:      soql,
		Operation:  req.Operation,
		PKChunking: req.PKChunking,
	})
	if err != nil {
		return ExportSummary{}, err
	}
	logger.Info().Str("job_id", job.ID).Str("soql", soql).Msg("query job created")

	if _, err := client.WaitUntilTerminal(ctx, deps.Clock, job.Kind, job.ID,
		cfg.Export.PollInterval, cfg.Export.PollTimeout); err != nil {
		return ExportSummary{}, err
	}

	outPath := req.OutPath
	if outPath == "" {
		outPath = DefaultExportPath(cfg.Export.OutputDir, req.Object, time.Now())
	}
	maxRecords := req.MaxRecords
	if maxRecords <= 0 {
		maxRecords = cfg.Export.MaxRecords
	}

	it := client.Pages(job.ID, maxRecords)
	pages, rows, err := assemble.AssembleExportFile(outPath, cfg.Export.DedupeHeader, func() ([]byte, bool, error) {
		page, ok, err := it.Next(ctx)
		return page.Payload, ok, err
	})
	if err != nil {
		return ExportSummary{}, fmt.Errorf("retrieve results for job %s: %w", job.ID, err)
	}

	summary := ExportSummary{JobID: job.ID, Pages: pages, Rows: rows, Path: outPath, SOQL: soql}
	logger.Info().
		Str("job_id", summary.JobID).
		Int("pages", summary.Pages).
		Int("rows", summary.Rows).
		Str("path", summary.Path).
		Msg("export complete")
	return summary, nil
}

// resolveQueryConfig turns a declarative export definition into SOQL. An
// explicit soql skips the describe round-trip; generated queries only select
// fields the target object actually exposes.
func resolveQueryConfig(ctx context.Context, client *bulk.Client, qc *ExportConfig) (string, error) {
	if strings.TrimSpace(qc.SOQL) != "" {
		return qc.ResolveSOQL()
	}
	fields, err := client.DescribeFields(ctx, qc.ObjectAPI)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", qc.ObjectAPI, err)
	}
	return qc.ResolveSOQLAgainst(func(name string) bool { return fields[name] })
}

// DefaultExportPath is output/{Object}_{yyyymmdd_hhmmss}.csv, the historical
// naming scheme downstream batch jobs glob for.
func DefaultExportPath(outputDir, object string, now time.Time) string {
	if object == "" {
		object = "export"
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", object, now.Format("20060102_150405")))
}
