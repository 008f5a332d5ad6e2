package bulk

import (
	"fmt"
	"time"
)

// APIError is a remote rejection of a job write. The response body is carried
// verbatim: Salesforce error payloads are the only way to diagnose a rejected
// job without re-running it.
type APIError struct {
	Op     string // "create job", "upload batch", "close job", "get job", "get results"
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: status=%d body=%s", e.Op, e.Status, e.Body)
}

// JobCreationError reports a rejected job creation request.
type JobCreationError struct{ APIError }

// UploadError reports a rejected CSV batch upload.
type UploadError struct{ APIError }

// CloseError reports a rejected UploadComplete transition.
type CloseError struct{ APIError }

// JobTimeoutError reports that polling exceeded its deadline. The job id is
// surfaced so the operator can follow up on the remote job, which is left
// running on purpose.
type JobTimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s waiting for job %s to complete", e.Timeout, e.JobID)
}

// JobFailedError reports a job that reached Failed or Aborted.
type JobFailedError struct {
	JobID string
	State JobState
	Job   Job
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s ended with state=%s: %v", e.JobID, e.State, e.Job.Raw)
}

// ValidationError reports a request rejected locally, before any network call.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }
