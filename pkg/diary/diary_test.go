package diary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "test-key", "user-1", WithHTTPClient(srv.Client()))
}

func TestCreateJob(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["user_id"] != "user-1" || body["name"] != "Smith kitchen" {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["address"]; ok {
			t.Error("empty address should be omitted")
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Job{
			ID: "7f1e...", UserID: "user-1", Name: "Smith kitchen",
			Status: "in_progress", JobState: map[string]any{},
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		})
	})

	job, err := client.CreateJob(context.Background(), "Smith kitchen", "", "")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Name != "Smith kitchen" {
		t.Errorf("name = %q", job.Name)
	}
}

func TestListJobsQuery(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_id") != "user-1" {
			t.Errorf("user_id = %q", q.Get("user_id"))
		}
		if q.Get("limit") != "5" {
			t.Errorf("limit = %q", q.Get("limit"))
		}
		json.NewEncoder(w).Encode([]Job{{ID: "a", Name: "one"}, {ID: "b", Name: "two"}})
	})

	jobs, err := client.ListJobs(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d", len(jobs))
	}
}

func TestUpdateJobPartial(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "complete" {
			t.Errorf("status = %v", body["status"])
		}
		if _, ok := body["name"]; ok {
			t.Error("nil name field should be omitted")
		}
		json.NewEncoder(w).Encode(Job{ID: "a", Status: "complete"})
	})

	status := "complete"
	job, err := client.UpdateJob(context.Background(), "a", JobUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if job.Status != "complete" {
		t.Errorf("status = %q", job.Status)
	}
}

func TestPatchJobState(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/a/state" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			Patch  map[string]any `json:"patch"`
			Reason string         `json:"reason"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Patch["stage"] != "painting" {
			t.Errorf("patch = %v", body.Patch)
		}
		if body.Reason != "voice command" {
			t.Errorf("reason = %q", body.Reason)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "updated_at": time.Now().UTC()})
	})

	err := client.PatchJobState(context.Background(), "a", map[string]any{"stage": "painting"}, "voice command")
	if err != nil {
		t.Fatalf("PatchJobState: %v", err)
	}
}

func TestSearchEntries(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/entries/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["query"] != "tile grout" {
			t.Errorf("query = %v", body["query"])
		}
		json.NewEncoder(w).Encode([]EntrySummary{{ID: "e1", Summary: "grouted splashback"}})
	})

	entries, err := client.SearchEntries(context.Background(), "job-1", "tile grout", 10)
	if err != nil {
		t.Fatalf("SearchEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Summary != "grouted splashback" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestDebrief(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/debrief" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["job_name_or_id"] != "Smith kitchen" {
			t.Errorf("job_name_or_id = %v", body["job_name_or_id"])
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(DebriefResult{
			Job:   Job{ID: "j1", Name: "Smith kitchen"},
			Entry: Entry{ID: "e1", Transcript: "finished cabinets today"},
		})
	})

	result, err := client.Debrief(context.Background(), "Smith kitchen", "finished cabinets today")
	if err != nil {
		t.Fatalf("Debrief: %v", err)
	}
	if result.Job.ID != "j1" || result.Entry.ID != "e1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Job j9 not found"})
	})

	_, err := client.GetJob(context.Background(), "j9")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("IsNotFound() = false, status %d", apiErr.StatusCode)
	}
	if apiErr.Detail != "Job j9 not found" {
		t.Errorf("detail = %q", apiErr.Detail)
	}
}

func TestHealth(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": time.Now().UTC()})
	})
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
