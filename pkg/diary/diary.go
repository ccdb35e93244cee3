// Package diary is the HTTP client for the job diary service: jobs,
// entries, full-text entry search and the one-shot debrief operation.
// All requests authenticate with an X-API-Key header.
package diary

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

// Client talks to one diary service on behalf of one user.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Client) { d.httpClient = c }
}

// NewClient creates a diary client. userID scopes every request.
func NewClient(baseURL, apiKey, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userID:     userID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Job is one tracked job.
type Job struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Name       string         `json:"name"`
	Address    string         `json:"address,omitempty"`
	ClientName string         `json:"client_name,omitempty"`
	Status     string         `json:"status"`
	JobState   map[string]any `json:"job_state"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Entry is one diary entry under a job.
type Entry struct {
	ID         string         `json:"id"`
	JobID      string         `json:"job_id"`
	UserID     string         `json:"user_id"`
	EntryTS    time.Time      `json:"entry_ts"`
	Transcript string         `json:"transcript"`
	Extracted  map[string]any `json:"extracted"`
	Summary    string         `json:"summary,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EntrySummary is the trimmed entry shape returned by list and search.
type EntrySummary struct {
	ID        string         `json:"id"`
	EntryTS   time.Time      `json:"entry_ts"`
	Summary   string         `json:"summary,omitempty"`
	Extracted map[string]any `json:"extracted,omitempty"`
}

// JobUpdate is a partial job update; nil fields are left unchanged.
type JobUpdate struct {
	Status     *string `json:"status,omitempty"`
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	ClientName *string `json:"client_name,omitempty"`
}

// DebriefResult is the job and entry a debrief produced.
type DebriefResult struct {
	Job   Job   `json:"job"`
	Entry Entry `json:"entry"`
}

// APIError is a non-2xx response from the diary service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("diary: status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("diary: status %d", e.StatusCode)
}

// IsNotFound reports whether the service answered 404.
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// CreateJob creates a new job.
func (c *Client) CreateJob(ctx context.Context, name, address, clientName string) (*Job, error) {
	body := map[string]any{
		"user_id": c.userID,
		"name":    name,
	}
	if address != "" {
		body["address"] = address
	}
	if clientName != "" {
		body["client_name"] = clientName
	}
	var job Job
	if err := c.do(ctx, http.MethodPost, "/jobs", nil, body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs lists the user's jobs, most recently updated first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	q := c.userQuery()
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var jobs []Job
	if err := c.do(ctx, http.MethodGet, "/jobs", q, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob fetches one job by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID, c.userQuery(), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies a partial update to a job.
func (c *Client) UpdateJob(ctx context.Context, jobID string, update JobUpdate) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPatch, "/jobs/"+jobID, c.userQuery(), update, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// PatchJobState shallow-merges patch into the job's state blob.
func (c *Client) PatchJobState(ctx context.Context, jobID string, patch map[string]any, reason string) error {
	body := map[string]any{"patch": patch}
	if reason != "" {
		body["reason"] = reason
	}
	var resp struct {
		OK        bool      `json:"ok"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := c.do(ctx, http.MethodPost, "/jobs/"+jobID+"/state", c.userQuery(), body, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &APIError{StatusCode: http.StatusOK, Detail: "state update not acknowledged"}
	}
	return nil
}

// CreateEntry records a diary entry under a job.
func (c *Client) CreateEntry(ctx context.Context, jobID, transcript string, extracted map[string]any, summary string) (*Entry, error) {
	body := map[string]any{
		"user_id":    c.userID,
		"job_id":     jobID,
		"transcript": transcript,
	}
	if extracted != nil {
		body["extracted"] = extracted
	}
	if summary != "" {
		body["summary"] = summary
	}
	var entry Entry
	if err := c.do(ctx, http.MethodPost, "/entries", nil, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries lists a job's entries, newest first.
func (c *Client) ListEntries(ctx context.Context, jobID string, limit int) ([]EntrySummary, error) {
	q := c.userQuery()
	q.Set("job_id", jobID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var entries []EntrySummary
	if err := c.do(ctx, http.MethodGet, "/entries", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SearchEntries runs a text search over a job's entries.
func (c *Client) SearchEntries(ctx context.Context, jobID, query string, limit int) ([]EntrySummary, error) {
	body := map[string]any{
		"user_id": c.userID,
		"job_id":  jobID,
		"query":   query,
	}
	if limit > 0 {
		body["limit"] = limit
	}
	var entries []EntrySummary
	if err := c.do(ctx, http.MethodPost, "/entries/search", nil, body, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Debrief files a transcript against a job named by UUID or plain name.
// An unknown name creates the job. The service stamps the job state with
// the debrief time and a transcript excerpt.
func (c *Client) Debrief(ctx context.Context, jobNameOrID, transcript string) (*DebriefResult, error) {
	body := map[string]any{
		"user_id":        c.userID,
		"job_name_or_id": jobNameOrID,
		"transcript":     transcript,
	}
	var result DebriefResult
	if err := c.do(ctx, http.MethodPost, "/debrief", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks service availability. No auth required.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &APIError{StatusCode: http.StatusOK, Detail: "service reported not ok"}
	}
	return nil
}

func (c *Client) userQuery() url.Values {
	q := url.Values{}
	q.Set("user_id", c.userID)
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("diary: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("diary: build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("diary: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil && detail.Detail != "" {
			apiErr.Detail = detail.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("diary: decode response: %w", err)
	}
	return nil
}
