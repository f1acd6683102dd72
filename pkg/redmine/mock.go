package redmine

import "context"

// MockClient is a mock Redmine client for testing. It records how many times
// each operation was called so tests can assert that short-circuit paths
// never reach the tracker.
type MockClient struct {
	issues        []Issue
	totalCount    int
	projectPages  [][]Project
	issuesErr     error
	projectsErr   error
	updateErr     error
	baseURL       string
	statusUpdates map[int]int // issueID -> statusID

	// Call counters
	FetchIssuesCalls   int
	FetchProjectsCalls int
	UpdateStatusCalls  int

	// LastFilter is the filter passed to the most recent FetchIssues call
	LastFilter IssueFilter
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithIssues sets the issues to return from FetchIssues
func WithIssues(issues []Issue) MockOption {
	return func(m *MockClient) {
		m.issues = issues
		m.totalCount = len(issues)
	}
}

// WithTotalCount overrides the total_count reported alongside issues
func WithTotalCount(n int) MockOption {
	return func(m *MockClient) {
		m.totalCount = n
	}
}

// WithProjects sets a single page of projects to return
func WithProjects(projects []Project) MockOption {
	return func(m *MockClient) {
		m.projectPages = [][]Project{projects}
	}
}

// WithProjectPages sets successive pages of projects, returned in order of
// the offsets requested
func WithProjectPages(pages ...[]Project) MockOption {
	return func(m *MockClient) {
		m.projectPages = pages
	}
}

// WithIssuesError sets an error to return from FetchIssues
func WithIssuesError(err error) MockOption {
	return func(m *MockClient) {
		m.issuesErr = err
	}
}

// WithProjectsError sets an error to return from FetchProjects
func WithProjectsError(err error) MockOption {
	return func(m *MockClient) {
		m.projectsErr = err
	}
}

// WithUpdateError sets an error to return from UpdateIssueStatus
func WithUpdateError(err error) MockOption {
	return func(m *MockClient) {
		m.updateErr = err
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock Redmine client
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:       "http://mock-redmine.local",
		statusUpdates: make(map[int]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// FetchIssues returns the configured issues or error
func (m *MockClient) FetchIssues(ctx context.Context, filter IssueFilter) (*IssuesResponse, error) {
	m.FetchIssuesCalls++
	m.LastFilter = filter
	if m.issuesErr != nil {
		return nil, m.issuesErr
	}

	issues := m.issues
	if filter.ProjectID > 0 {
		issues = nil
		for _, issue := range m.issues {
			if issue.Project.ID == filter.ProjectID {
				issues = append(issues, issue)
			}
		}
	}

	total := m.totalCount
	if filter.ProjectID > 0 {
		total = len(issues)
	}

	return &IssuesResponse{
		Issues:     issues,
		TotalCount: total,
		Limit:      filter.Limit,
	}, nil
}

// FetchProjects returns the configured project page for the requested offset
func (m *MockClient) FetchProjects(ctx context.Context, limit, offset int) ([]Project, error) {
	m.FetchProjectsCalls++
	if m.projectsErr != nil {
		return nil, m.projectsErr
	}
	page := offset / limit
	if page >= len(m.projectPages) {
		return nil, nil
	}
	return m.projectPages[page], nil
}

// UpdateIssueStatus records the status write or returns the configured error
func (m *MockClient) UpdateIssueStatus(ctx context.Context, issueID, statusID int) error {
	m.UpdateStatusCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	m.statusUpdates[issueID] = statusID
	return nil
}

// StatusUpdates returns the recorded status writes (for testing)
func (m *MockClient) StatusUpdates() map[int]int {
	return m.statusUpdates
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
