package statusclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/statusclient"
)

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/abc/status" {
			t.Fatalf("got path %q", r.URL.Path)
		}
		if got := r.Header.Get("Girder-Token"); got != "tok" {
			t.Fatalf("got token %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer srv.Close()

	c := statusclient.New(statusclient.Config{BaseURL: srv.URL})
	status, err := c.GetStatus(t.Context(), "abc", "tok")
	if err != nil {
		t.Fatal(err)
	}
	if status != job.Running {
		t.Fatalf("got %q, want running", status)
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := statusclient.New(statusclient.Config{BaseURL: srv.URL})
	if _, err := c.GetStatus(t.Context(), "missing", "tok"); err == nil {
		t.Fatal("expected error")
	}
}

func TestPatchJob(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("got method %q", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := statusclient.New(statusclient.Config{BaseURL: srv.URL})
	err := c.PatchJob(t.Context(), "abc", "tok", map[string]any{
		"status":  "queued",
		"sgeId":   "42",
		"timings": map[string]any{"queued": 1500},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotBody["status"] != "queued" || gotBody["sgeId"] != "42" {
		t.Fatalf("got body %v", gotBody)
	}
}

func TestPatchJobError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := statusclient.New(statusclient.Config{BaseURL: srv.URL})
	err := c.PatchJob(t.Context(), "abc", "tok", map[string]any{"status": "error"})
	var statusErr *statusclient.StatusError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asStatusError(err, &statusErr) {
		t.Fatalf("got %v, want *StatusError", err)
	}
	if statusErr.StatusCode != 500 {
		t.Fatalf("got status %d", statusErr.StatusCode)
	}
}

func asStatusError(err error, target **statusclient.StatusError) bool {
	se, ok := err.(*statusclient.StatusError)
	if !ok {
		return false
	}
	*target = se
	return true
}

func TestGetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/abc" {
			t.Fatalf("got path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(job.Job{Id: "abc", Name: "run", Status: job.Queued})
	}))
	defer srv.Close()

	c := statusclient.New(statusclient.Config{BaseURL: srv.URL})
	j, err := c.GetJob(t.Context(), "abc", "tok")
	if err != nil {
		t.Fatal(err)
	}
	if j.Name != "run" || j.Status != job.Queued {
		t.Fatalf("got %+v", j)
	}
}
