// Package redmine provides a client for the Redmine REST API, limited to the
// issue and project operations the seat board needs.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ymurata/seatboard/internal/logger"
)

// StatusAll is the status_id filter value that matches issues in any status.
const StatusAll = "*"

// Ref is an id/name pair as Redmine embeds it in issue payloads
// (project, tracker, status, priority, author).
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Issue represents a Redmine issue. Only status is ever written by this
// system; everything else is read as-is.
type Issue struct {
	ID          int    `json:"id"`
	Subject     string `json:"subject"`
	Project     Ref    `json:"project"`
	Tracker     Ref    `json:"tracker"`
	Status      Ref    `json:"status"`
	Priority    *Ref   `json:"priority,omitempty"`
	Author      *Ref   `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	UpdatedOn   string `json:"updated_on,omitempty"`
}

// Project represents a Redmine project. The display name carries the seat
// encoding this system resolves against.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// IssuesResponse is the response from issues.json
type IssuesResponse struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

// ProjectsResponse is the response from projects.json
type ProjectsResponse struct {
	Projects   []Project `json:"projects"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

// IssueFilter narrows an issue listing. A zero field is omitted from the
// query. StatusID takes a numeric id or StatusAll.
type IssueFilter struct {
	TrackerID int
	StatusID  string
	ProjectID int
	Limit     int
}

// Client defines the interface for Redmine operations
type Client interface {
	// FetchIssues lists issues matching the filter (first page only)
	FetchIssues(ctx context.Context, filter IssueFilter) (*IssuesResponse, error)
	// FetchProjects lists one page of projects
	FetchProjects(ctx context.Context, limit, offset int) ([]Project, error)
	// UpdateIssueStatus sets the status of a single issue
	UpdateIssueStatus(ctx context.Context, issueID, statusID int) error
	// BaseURL returns the configured Redmine base URL
	BaseURL() string
}

// HTTPClient is a real HTTP client for Redmine
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new Redmine HTTP client
func NewHTTPClient(baseURL, apiKey string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a Redmine client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL, apiKey string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured Redmine base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// get issues a GET request against the Redmine API and decodes the JSON body
// into response. Every call carries the API key header.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, response interface{}) error {
	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	c.log.Debug("Redmine request", "method", "GET", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Redmine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Redmine response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Redmine returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// FetchIssues lists issues matching the filter. Only the first page is
// requested; result sets larger than filter.Limit are truncated upstream.
func (c *HTTPClient) FetchIssues(ctx context.Context, filter IssueFilter) (*IssuesResponse, error) {
	params := url.Values{}
	if filter.TrackerID > 0 {
		params.Set("tracker_id", strconv.Itoa(filter.TrackerID))
	}
	if filter.StatusID != "" {
		params.Set("status_id", filter.StatusID)
	}
	if filter.ProjectID > 0 {
		params.Set("project_id", strconv.Itoa(filter.ProjectID))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}

	var response IssuesResponse
	if err := c.get(ctx, "/issues.json", params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// FetchProjects lists one page of projects. Callers paginate by advancing
// offset until a page comes back short or empty.
func (c *HTTPClient) FetchProjects(ctx context.Context, limit, offset int) ([]Project, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var response ProjectsResponse
	if err := c.get(ctx, "/projects.json", params, &response); err != nil {
		return nil, err
	}
	return response.Projects, nil
}

// issueUpdate is the request body for PUT /issues/:id.json
type issueUpdate struct {
	Issue struct {
		StatusID int `json:"status_id"`
	} `json:"issue"`
}

// UpdateIssueStatus sets the status of an issue. The write is unconditional;
// Redmine treats a redundant status write as a no-op. Redmine answers either
// 204 No Content or 200 with a body, both count as success.
func (c *HTTPClient) UpdateIssueStatus(ctx context.Context, issueID, statusID int) error {
	var update issueUpdate
	update.Issue.StatusID = statusID

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/issues/%d.json", c.baseURL, issueID)

	c.log.Debug("Redmine request", "method", "PUT", "url", reqURL, "status_id", statusID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Redmine-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Redmine: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Redmine response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("Redmine returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
