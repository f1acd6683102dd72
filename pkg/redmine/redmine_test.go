package redmine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ymurata/seatboard/internal/logger"
)

func TestHTTPClient_FetchIssues_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/issues.json" {
			t.Errorf("expected path /issues.json, got %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Redmine-API-Key"); got != "test-key" {
			t.Errorf("expected API key header 'test-key', got %q", got)
		}
		q := r.URL.Query()
		if q.Get("tracker_id") != "5" {
			t.Errorf("expected tracker_id=5, got %s", q.Get("tracker_id"))
		}
		if q.Get("status_id") != "4" {
			t.Errorf("expected status_id=4, got %s", q.Get("status_id"))
		}
		if q.Get("limit") != "100" {
			t.Errorf("expected limit=100, got %s", q.Get("limit"))
		}

		json.NewEncoder(w).Encode(IssuesResponse{
			Issues: []Issue{
				{ID: 1, Subject: "回路図の確認", Project: Ref{ID: 10, Name: "組み込みシステム基礎 (3)"}},
			},
			TotalCount: 1,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
	resp, err := client.FetchIssues(context.Background(), IssueFilter{TrackerID: 5, StatusID: "4", Limit: 100})
	if err != nil {
		t.Fatalf("FetchIssues failed: %v", err)
	}

	if len(resp.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(resp.Issues))
	}
	if resp.Issues[0].Subject != "回路図の確認" {
		t.Errorf("unexpected subject %q", resp.Issues[0].Subject)
	}
	if resp.TotalCount != 1 {
		t.Errorf("expected total_count 1, got %d", resp.TotalCount)
	}
}

func TestHTTPClient_FetchIssues_AllStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status_id") != "*" {
			t.Errorf("expected status_id=*, got %s", q.Get("status_id"))
		}
		if q.Get("project_id") != "10" {
			t.Errorf("expected project_id=10, got %s", q.Get("project_id"))
		}
		json.NewEncoder(w).Encode(IssuesResponse{})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
	if _, err := client.FetchIssues(context.Background(), IssueFilter{ProjectID: 10, StatusID: StatusAll}); err != nil {
		t.Fatalf("FetchIssues failed: %v", err)
	}
}

func TestHTTPClient_FetchIssues_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "bad-key", logger.Noop{})
	if _, err := client.FetchIssues(context.Background(), IssueFilter{Limit: 100}); err == nil {
		t.Fatal("expected error for server error response")
	}
}

func TestHTTPClient_FetchIssues_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
	if _, err := client.FetchIssues(context.Background(), IssueFilter{Limit: 100}); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestHTTPClient_FetchProjects_Pagination(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects.json" {
			t.Errorf("expected path /projects.json, got %s", r.URL.Path)
		}
		offsets = append(offsets, r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(ProjectsResponse{
			Projects: []Project{{ID: 1, Name: "組み込みシステム基礎 (5)"}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
	projects, err := client.FetchProjects(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("FetchProjects failed: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if len(offsets) != 1 || offsets[0] != "200" {
		t.Errorf("expected one request with offset=200, got %v", offsets)
	}
}

func TestHTTPClient_UpdateIssueStatus_Success(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			if r.URL.Path != "/issues/42.json" {
				t.Errorf("expected path /issues/42.json, got %s", r.URL.Path)
			}

			body, _ := io.ReadAll(r.Body)
			var update issueUpdate
			if err := json.Unmarshal(body, &update); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
			if update.Issue.StatusID != 3 {
				t.Errorf("expected status_id 3, got %d", update.Issue.StatusID)
			}

			w.WriteHeader(status)
		}))

		client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
		if err := client.UpdateIssueStatus(context.Background(), 42, 3); err != nil {
			t.Errorf("UpdateIssueStatus with upstream %d failed: %v", status, err)
		}
		server.Close()
	}
}

func TestHTTPClient_UpdateIssueStatus_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", logger.Noop{})
	if err := client.UpdateIssueStatus(context.Background(), 9999, 3); err == nil {
		t.Fatal("expected error for 404 from Redmine")
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "test-key", logger.Noop{})
	if _, err := client.FetchIssues(context.Background(), IssueFilter{Limit: 100}); err == nil {
		t.Fatal("expected error when Redmine is unreachable")
	}
	if err := client.UpdateIssueStatus(context.Background(), 1, 3); err == nil {
		t.Fatal("expected error when Redmine is unreachable")
	}
}
