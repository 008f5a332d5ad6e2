package bulk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// locatorHeader carries the continuation cursor for paginated query results.
const locatorHeader = "Sforce-Locator"

// Client talks to the Salesforce Bulk API 2.0 job endpoints. One client
// drives one job at a time; concurrent dataset runs get their own client.
type Client struct {
	baseURL string // https://org.my.salesforce.com/services/data/v62.0
	token   string
	http    *http.Client
}

// NewClient builds a client for one org instance. httpClient may be nil, in
// which case a 5 minute timeout is applied; result pages can be large.
func NewClient(instanceURL, apiVersion, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL: fmt.Sprintf("%s/services/data/v%s", strings.TrimRight(instanceURL, "/"), apiVersion),
		token:   token,
		http:    httpClient,
	}
}

type response struct {
	status int
	body   []byte
	header http.Header
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, accept string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &response{status: resp.StatusCode, body: data, header: resp.Header}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, body, "application/json", "application/json")
}

// CreateQueryJob submits a new query or queryAll job and returns it in its
// initial state.
func (c *Client) CreateQueryJob(ctx context.Context, req QueryJobRequest) (Job, error) {
	op := req.Operation
	if op == "" {
		op = KindQuery
	}
	if op != KindQuery && op != KindQueryAll {
		return Job{}, &ValidationError{Detail: fmt.Sprintf("operation %q is not a query operation", op)}
	}
	if strings.TrimSpace(req.Query) == "" {
		return Job{}, &ValidationError{Detail: "query must not be empty"}
	}

	body := map[string]any{
		"operation":       string(op),
		"query":           req.Query,
		"columnDelimiter": defaultString(req.ColumnDelimiter, "COMMA"),
		"lineEnding":      defaultString(req.LineEnding, "LF"),
	}
	if req.PKChunking != "" {
		body["pkChunking"] = req.PKChunking
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/jobs/query", body)
	if err != nil {
		return Job{}, err
	}
	if resp.status >= 300 {
		return Job{}, &JobCreationError{APIError{Op: "create job", Status: resp.status, Body: string(resp.body)}}
	}
	return parseJob(op, resp.body)
}

// CreateIngestJob submits a new ingest job. An upsert without an external id
// field is rejected here, before anything reaches the wire.
func (c *Client) CreateIngestJob(ctx context.Context, req IngestJobRequest) (Job, error) {
	if req.Object == "" {
		return Job{}, &ValidationError{Detail: "ingest job needs an object"}
	}
	op := strings.ToLower(defaultString(req.Operation, "insert"))
	if op == "upsert" && req.ExternalIDField == "" {
		return Job{}, &ValidationError{Detail: fmt.Sprintf("upsert on %s requires an external id field", req.Object)}
	}

	body := map[string]any{
		"object":          req.Object,
		"operation":       op,
		"columnDelimiter": defaultString(req.ColumnDelimiter, "COMMA"),
		"lineEnding":      defaultString(req.LineEnding, "LF"),
	}
	if op == "upsert" {
		body["externalIdFieldName"] = req.ExternalIDField
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/jobs/ingest", body)
	if err != nil {
		return Job{}, err
	}
	if resp.status >= 300 {
		return Job{}, &JobCreationError{APIError{Op: "create job", Status: resp.status, Body: string(resp.body)}}
	}
	return parseJob(KindIngest, resp.body)
}

// UploadBatch transmits the normalized CSV as the ingest job's data batch.
func (c *Client) UploadBatch(ctx context.Context, jobID string, csv io.Reader) error {
	resp, err := c.do(ctx, http.MethodPut, "/jobs/ingest/"+jobID+"/batches", csv, "text/csv", "")
	if err != nil {
		return err
	}
	if resp.status >= 300 {
		return &UploadError{APIError{Op: "upload batch", Status: resp.status, Body: string(resp.body)}}
	}
	return nil
}

// CloseJob transitions an ingest job to UploadComplete so processing starts.
// Skipping this leaves the job parked until the poll loop times out.
func (c *Client) CloseJob(ctx context.Context, jobID string) error {
	resp, err := c.doJSON(ctx, http.MethodPatch, "/jobs/ingest/"+jobID, map[string]string{"state": string(StateUploadComplete)})
	if err != nil {
		return err
	}
	if resp.status >= 300 {
		return &CloseError{APIError{Op: "close job", Status: resp.status, Body: string(resp.body)}}
	}
	return nil
}

// GetJob fetches the current remote status of a job.
func (c *Client) GetJob(ctx context.Context, kind JobKind, jobID string) (Job, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/jobs/"+kind.path()+"/"+jobID, nil)
	if err != nil {
		return Job{}, err
	}
	if resp.status >= 300 {
		return Job{}, &APIError{Op: "get job", Status: resp.status, Body: string(resp.body)}
	}
	job, err := parseJob(kind, resp.body)
	if err != nil {
		return Job{}, err
	}
	job.LastPolledAt = time.Now()
	return job, nil
}

// Pages begins a fresh walk over a query job's result pages. Each call starts
// from the first page; retrieval is not restartable mid-walk.
func (c *Client) Pages(jobID string, maxRecords int) *PageIterator {
	if maxRecords <= 0 {
		maxRecords = 100000
	}
	return &PageIterator{client: c, jobID: jobID, maxRecords: maxRecords}
}

// PageIterator walks the paginated results of one query job.
type PageIterator struct {
	client     *Client
	jobID      string
	maxRecords int
	locator    string
	done       bool
}

// Next fetches the next result page. It returns false once the previous page
// was final or an error occurred.
func (it *PageIterator) Next(ctx context.Context) (ResultPage, bool, error) {
	if it.done {
		return ResultPage{}, false, nil
	}

	params := url.Values{"maxRecords": {strconv.Itoa(it.maxRecords)}}
	if it.locator != "" {
		params.Set("locator", it.locator)
	}
	path := "/jobs/query/" + it.jobID + "/results?" + params.Encode()

	resp, err := it.client.do(ctx, http.MethodGet, path, nil, "", "text/csv")
	if err != nil {
		it.done = true
		return ResultPage{}, false, err
	}
	if resp.status >= 300 {
		it.done = true
		return ResultPage{}, false, &APIError{Op: "get results", Status: resp.status, Body: string(resp.body)}
	}

	page := ResultPage{Payload: resp.body, Locator: resp.header.Get(locatorHeader)}
	if page.Final() {
		it.done = true
	} else {
		it.locator = page.Locator
	}
	return page, true, nil
}

// DescribeFields returns the set of field API names the object exposes,
// keyed exactly as Salesforce spells them.
func (c *Client) DescribeFields(ctx context.Context, object string) (map[string]bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/sobjects/"+object+"/describe", nil, "", "application/json")
	if err != nil {
		return nil, err
	}
	if resp.status >= 300 {
		return nil, &APIError{Op: "describe object", Status: resp.status, Body: string(resp.body)}
	}

	var data struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return nil, fmt.Errorf("parse describe response for %s: %w", object, err)
	}
	fields := make(map[string]bool, len(data.Fields))
	for _, f := range data.Fields {
		fields[f.Name] = true
	}
	return fields, nil
}

// NamedResult fetches an ingest job's successful or failed report. A missing
// report is a valid terminal state: the remote answers non-2xx and the caller
// gets empty bytes, not an error.
func (c *Client) NamedResult(ctx context.Context, jobID string, kind ResultKind) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/jobs/ingest/"+jobID+"/"+string(kind)+"Results", nil, "", "text/csv")
	if err != nil {
		return nil, err
	}
	if resp.status >= 300 {
		return []byte{}, nil
	}
	return resp.body, nil
}

func parseJob(kind JobKind, body []byte) (Job, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Job{}, fmt.Errorf("parse job response: %w (body=%s)", err, snippet(body))
	}
	id, _ := raw["id"].(string)
	if id == "" {
		return Job{}, fmt.Errorf("job response carried no id: %s", snippet(body))
	}
	state, _ := raw["state"].(string)
	return Job{
		ID:        id,
		Kind:      kind,
		State:     JobState(state),
		Raw:       raw,
		CreatedAt: time.Now(),
	}, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func snippet(b []byte) string {
	const limit = 1000
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
