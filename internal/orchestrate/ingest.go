package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/assemble"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/bulk"
	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/transform"
)

// IngestRequest describes one ingest run.
type IngestRequest struct {
	DatasetKey string
	InputPath  string
	OutPath    string // normalized CSV location, defaults from the descriptor
	SkipClose  bool   // diagnostic switch: leave the job open for inspection
}

// IngestSummary is the structured result of one ingest run. Reports is
// populated even when the job itself failed, so a bad batch can be diagnosed
// from the error CSV without re-running.
type IngestSummary struct {
	JobID          string
	DatasetKey     string
	State          bulk.JobState
	NormalizedPath string
	Reports        assemble.ReportPaths
}

// jobSettings resolves object/operation/external-id for a dataset: mapping
// spec metadata first, then descriptor metadata, then config defaults (the
// historical precedence, converter meta over global settings).
func jobSettings(deps *Deps, d *transform.Descriptor) (bulk.IngestJobRequest, error) {
	var spec transform.MappingSpec
	loaded, err := d.Spec(deps.Config.Ingest.MappingDir)
	if err != nil {
		return bulk.IngestJobRequest{}, err
	}
	if loaded != nil {
		spec = *loaded
	}

	sf := deps.Config.Salesforce
	req := bulk.IngestJobRequest{
		Object:          firstOf(spec.SFObject, d.SFObject, sf.Object),
		Operation:       firstOf(spec.Operation, d.Operation, sf.Operation),
		ExternalIDField: firstOf(spec.ExternalIDField, d.ExternalIDField, sf.ExternalIDField),
	}
	if req.Object == "" {
		return bulk.IngestJobRequest{}, fmt.Errorf("dataset %s: no target object configured", d.Key)
	}
	if req.Operation == "upsert" && req.ExternalIDField == "" {
		return bulk.IngestJobRequest{}, &bulk.ValidationError{
			Detail: fmt.Sprintf("dataset %s: upsert requires an external id field", d.Key),
		}
	}
	return req, nil
}

// IngestDataset runs transform → create → upload → close → poll → reports.
func IngestDataset(ctx context.Context, deps *Deps, req IngestRequest) (IngestSummary, error) {
	cfg := deps.Config
	logger := log.With().Str("run_id", deps.runID()).Str("dataset", req.DatasetKey).Logger()

	desc, err := deps.Registry.Get(req.DatasetKey)
	if err != nil {
		return IngestSummary{}, err
	}

	jobReq, err := jobSettings(deps, desc)
	if err != nil {
		return IngestSummary{}, err
	}

	outPath, err := desc.ResolveOutput(cfg.Ingest.MappingDir, cfg.Ingest.OutputDir, req.OutPath)
	if err != nil {
		return IngestSummary{}, err
	}
	normalized, err := desc.Convert(cfg.Ingest.MappingDir, req.InputPath, outPath)
	if err != nil {
		return IngestSummary{}, err
	}
	logger.Info().Str("normalized", normalized).Msg("transform complete")

	client, err := deps.newClient(ctx)
	if err != nil {
		return IngestSummary{}, err
	}

	job, err := client.CreateIngestJob(ctx, jobReq)
	if err != nil {
		return IngestSummary{}, err
	}
	logger.Info().Str("job_id", job.ID).Str("object", jobReq.Object).Str("operation", jobReq.Operation).Msg("ingest job created")

	f, err := os.Open(normalized)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("open normalized csv: %w", err)
	}
	uploadErr := client.UploadBatch(ctx, job.ID, f)
	_ = f.Close()
	if uploadErr != nil {
		return IngestSummary{}, uploadErr
	}
	logger.Info().Str("job_id", job.ID).Msg("batch uploaded")

	if req.SkipClose {
		logger.Warn().Str("job_id", job.ID).Msg("leaving job open on request; it will not start processing")
		return IngestSummary{JobID: job.ID, DatasetKey: req.DatasetKey, State: job.State, NormalizedPath: normalized}, nil
	}
	if err := client.CloseJob(ctx, job.ID); err != nil {
		return IngestSummary{}, err
	}

	final, waitErr := client.WaitUntilTerminal(ctx, deps.Clock, bulk.KindIngest, job.ID,
		cfg.Ingest.PollInterval, cfg.Ingest.PollTimeout)

	summary := IngestSummary{
		JobID:          job.ID,
		DatasetKey:     req.DatasetKey,
		State:          final.State,
		NormalizedPath: normalized,
	}

	// A failed job still has reports worth keeping; only bail out before the
	// download when polling never reached a terminal state at all.
	var failed *bulk.JobFailedError
	if waitErr != nil && !errors.As(waitErr, &failed) {
		return summary, waitErr
	}

	successful, err := client.NamedResult(ctx, job.ID, bulk.ResultSuccessful)
	if err != nil {
		return summary, fmt.Errorf("download success report: %w", err)
	}
	failedRows, err := client.NamedResult(ctx, job.ID, bulk.ResultFailed)
	if err != nil {
		return summary, fmt.Errorf("download error report: %w", err)
	}

	reports, err := assemble.WriteIngestReports(cfg.Ingest.OutputDir, job.ID, req.DatasetKey, successful, failedRows)
	if err != nil {
		return summary, err
	}
	summary.Reports = reports

	if waitErr != nil {
		logger.Error().Str("job_id", job.ID).Str("state", string(final.State)).
			Str("error_report", reports.Error).Msg("ingest job did not complete")
		return summary, waitErr
	}

	logger.Info().
		Str("job_id", summary.JobID).
		Str("success_report", reports.Success).
		Str("error_report", reports.Error).
		Msg("ingest complete")
	return summary, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
