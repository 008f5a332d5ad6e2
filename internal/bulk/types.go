package bulk

import (
	"strings"
	"time"
)

// JobKind selects which Bulk API 2.0 endpoint family a job belongs to.
type JobKind string

const (
	KindQuery    JobKind = "query"
	KindQueryAll JobKind = "queryAll"
	KindIngest   JobKind = "ingest"
)

// path returns the jobs path segment for the kind. Query and queryAll jobs
// share the query endpoints; the operation field tells them apart.
func (k JobKind) path() string {
	if k == KindIngest {
		return "ingest"
	}
	return "query"
}

// JobState is the remote lifecycle state of a bulk job.
type JobState string

const (
	StateOpen           JobState = "Open"
	StateSubmitted      JobState = "Submitted"
	StateInProgress     JobState = "InProgress"
	StateUploadComplete JobState = "UploadComplete"
	StateJobComplete    JobState = "JobComplete"
	StateFailed         JobState = "Failed"
	StateAborted        JobState = "Aborted"
)

// Terminal reports whether the state ends the poll loop.
func (s JobState) Terminal() bool {
	return s == StateJobComplete || s == StateFailed || s == StateAborted
}

// Job is one asynchronous bulk operation. It lives only for the duration of a
// single orchestration run; the remote system owns the durable record.
type Job struct {
	ID           string
	Kind         JobKind
	State        JobState
	Raw          map[string]any
	CreatedAt    time.Time
	LastPolledAt time.Time
}

// ResultPage is one chunk of a paginated query result retrieval.
type ResultPage struct {
	Payload []byte
	Locator string
}

// locatorEnd is the literal Sforce-Locator value the API returns on the last
// page. Treating it as a real cursor loops forever, so the comparison is kept
// case-insensitive on purpose.
const locatorEnd = "null"

// Final reports whether this page terminates retrieval.
func (p ResultPage) Final() bool {
	return p.Locator == "" || strings.EqualFold(p.Locator, locatorEnd)
}

// QueryJobRequest describes a query job to create.
type QueryJobRequest struct {
	Query           string
	Operation       JobKind // KindQuery or KindQueryAll
	ColumnDelimiter string  // default COMMA
	LineEnding      string  // default LF
	PKChunking      string  // e.g. "chunkSize=100000", optional
}

// IngestJobRequest describes an ingest job to create.
type IngestJobRequest struct {
	Object          string
	Operation       string // insert / update / upsert / delete
	ColumnDelimiter string // default COMMA
	LineEnding      string // default LF
	ExternalIDField string // required for upsert
}

// ResultKind names an ingest job report.
type ResultKind string

const (
	ResultSuccessful ResultKind = "successful"
	ResultFailed     ResultKind = "failed"
)
