package bulk

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock abstracts time for the poll loop so timeout behavior is testable
// without wall-clock delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the production Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitUntilTerminal polls the job status at a fixed interval until it reaches
// JobComplete, Failed or Aborted, or the timeout elapses. On timeout the
// remote job is left alone; aborting it is deliberately not attempted.
func (c *Client) WaitUntilTerminal(ctx context.Context, clock Clock, kind JobKind, jobID string, interval, timeout time.Duration) (Job, error) {
	if clock == nil {
		clock = RealClock{}
	}
	deadline := clock.Now().Add(timeout)

	for {
		job, err := c.GetJob(ctx, kind, jobID)
		if err != nil {
			return Job{}, err
		}

		switch {
		case job.State == StateJobComplete:
			return job, nil
		case job.State == StateFailed || job.State == StateAborted:
			return job, &JobFailedError{JobID: jobID, State: job.State, Job: job}
		}

		if !clock.Now().Before(deadline) {
			return job, &JobTimeoutError{JobID: jobID, Timeout: timeout}
		}

		log.Debug().Str("job_id", jobID).Str("state", string(job.State)).Msg("job not terminal yet")
		if err := clock.Sleep(ctx, interval); err != nil {
			return job, err
		}
	}
}
