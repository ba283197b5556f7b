package redmine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "test-key"), ts
}

func TestListIssues(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Redmine-API-Key"); got != "test-key" {
			t.Errorf("API key header = %q", got)
		}
		if got := r.URL.Query().Get("project_id"); got != "4" {
			t.Errorf("project_id = %q", got)
		}
		_, _ = w.Write([]byte(`{
			"issues": [
				{"id": 1, "subject": "First", "project": {"id": 4, "name": "P"},
				 "tracker": {"id": 1, "name": "Bug"}, "status": {"id": 1, "name": "New"},
				 "priority": {"id": 2, "name": "Normal"}, "author": {"id": 3, "name": "A"},
				 "done_ratio": 0, "created_on": "2024-01-01T10:00:00Z", "updated_on": "2024-01-01T10:00:00Z"}
			],
			"total_count": 12, "offset": 0, "limit": 25
		}`))
	})
	client, _ := newTestClient(t, mux)

	resp, err := client.ListIssues(IssueQuery{ProjectID: "4"})
	if err != nil {
		t.Fatalf("ListIssues failed: %v", err)
	}
	if len(resp.Issues) != 1 || resp.Issues[0].Subject != "First" {
		t.Errorf("unexpected issues: %+v", resp.Issues)
	}
	if resp.TotalCount != 12 {
		t.Errorf("total_count = %d, want 12", resp.TotalCount)
	}
}

func TestListIssuesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Not authorized"]}`))
	})
	client, _ := newTestClient(t, mux)

	_, err := client.ListIssues(IssueQuery{})
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "status 403") || !strings.Contains(err.Error(), "Not authorized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues/42.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("include"); got != "journals,relations" {
			t.Errorf("include = %q", got)
		}
		_, _ = w.Write([]byte(`{"issue": {
			"id": 42, "subject": "Found", "project": {"id": 1, "name": "P"},
			"tracker": {"id": 1, "name": "Bug"}, "status": {"id": 1, "name": "New"},
			"priority": {"id": 2, "name": "Normal"}, "author": {"id": 3, "name": "A"},
			"estimated_hours": 0, "done_ratio": 30,
			"created_on": "2024-01-01T10:00:00Z", "updated_on": "2024-01-02T10:00:00Z",
			"journals": [{"id": 9, "user": {"id": 3, "name": "A"}, "notes": "hi", "created_on": "2024-01-02T10:00:00Z"}]
		}}`))
	})
	client, _ := newTestClient(t, mux)

	issue, err := client.GetIssue(42, "journals,relations")
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if issue.ID != 42 || issue.Subject != "Found" {
		t.Errorf("unexpected issue: %+v", issue)
	}
	if issue.EstimatedHours == nil || *issue.EstimatedHours != 0 {
		t.Error("explicit zero estimated_hours should survive decoding")
	}
	if issue.SpentHours != nil {
		t.Error("absent spent_hours should stay nil")
	}
	if len(issue.Journals) != 1 || issue.Journals[0].Notes != "hi" {
		t.Errorf("unexpected journals: %+v", issue.Journals)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /issues/999.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.GetIssue(999, ""); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestCreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /issues.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		issue := body["issue"]
		if issue["project_id"] != float64(1) || issue["subject"] != "New issue" {
			t.Errorf("unexpected payload: %v", issue)
		}
		if _, present := issue["status_id"]; present {
			t.Error("zero status_id must be omitted")
		}
		cfs, ok := issue["custom_fields"].([]any)
		if !ok || len(cfs) != 1 {
			t.Fatalf("unexpected custom_fields: %v", issue["custom_fields"])
		}
		cf := cfs[0].(map[string]any)
		if cf["id"] != float64(12) || cf["value"] != "High" {
			t.Errorf("unexpected custom field: %v", cf)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"issue": {
			"id": 101, "subject": "New issue", "project": {"id": 1, "name": "P"},
			"tracker": {"id": 1, "name": "Bug"}, "status": {"id": 1, "name": "New"},
			"priority": {"id": 2, "name": "Normal"}, "author": {"id": 3, "name": "A"},
			"done_ratio": 0, "created_on": "2024-01-01T10:00:00Z", "updated_on": "2024-01-01T10:00:00Z"
		}}`))
	})
	client, _ := newTestClient(t, mux)

	issue, err := client.CreateIssue(CreateIssueParams{
		ProjectID:    1,
		Subject:      "New issue",
		CustomFields: map[string]any{"12": "High"},
	})
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if issue.ID != 101 {
		t.Errorf("issue ID = %d, want 101", issue.ID)
	}
}

func TestUpdateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /issues/42.json", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		issue := body["issue"]
		if issue["notes"] != "done" || issue["status_id"] != float64(5) {
			t.Errorf("unexpected payload: %v", issue)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	client, _ := newTestClient(t, mux)

	err := client.UpdateIssue(42, UpdateIssueParams{StatusID: 5, Notes: "done"})
	if err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
}

func TestUpdateIssueValidationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /issues/42.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":["Subject cannot be blank"]}`))
	})
	client, _ := newTestClient(t, mux)

	err := client.UpdateIssue(42, UpdateIssueParams{Subject: " "})
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if !strings.Contains(err.Error(), "Subject cannot be blank") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIssueQueryValues(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		values := IssueQuery{}.Values()
		if got := values.Get("limit"); got != "25" {
			t.Errorf("default limit = %q, want 25", got)
		}
		if len(values) != 1 {
			t.Errorf("zero query should only carry the limit, got %v", values)
		}
	})

	t.Run("full query", func(t *testing.T) {
		q := IssueQuery{
			ProjectID:    "web",
			StatusID:     "open",
			AssignedToID: "me",
			TrackerID:    2,
			Sort:         "updated_on:desc",
			Limit:        100,
			Offset:       50,
			CustomFields: map[string]string{"cf_12": "High"},
		}
		values := q.Values()
		for key, want := range map[string]string{
			"project_id":     "web",
			"status_id":      "open",
			"assigned_to_id": "me",
			"tracker_id":     "2",
			"sort":           "updated_on:desc",
			"limit":          "100",
			"offset":         "50",
			"cf_12":          "High",
		} {
			if got := values.Get(key); got != want {
				t.Errorf("%s = %q, want %q", key, got, want)
			}
		}
	})

	t.Run("filter triplets merge verbatim", func(t *testing.T) {
		q := IssueQuery{}
		q.Filters = map[string][]string{
			"f[]":          {"subject", "description"},
			"op[subject]":  {"~"},
			"v[subject][]": {"timeout"},
		}
		values := q.Values()
		if got := values["f[]"]; len(got) != 2 {
			t.Errorf("f[] = %v, want both field names", got)
		}
		if got := values.Get("op[subject]"); got != "~" {
			t.Errorf("op[subject] = %q", got)
		}
	})
}
