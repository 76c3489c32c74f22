package web

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/config"
	"github.com/kozaktomas/photo-triage/internal/refstore"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{Web: config.WebConfig{Host: "127.0.0.1", Port: 0}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(cfg, refstore.New(), logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any, target any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode
}

func TestServer_RegisterThenSort(t *testing.T) {
	ts := newTestServer(t)

	var sortErr api.ErrorResponse
	if code := postJSON(t, ts.URL+api.PathSort, api.SortRequest{}, &sortErr); code != http.StatusBadRequest {
		t.Errorf("expected 400 before registration, got %d", code)
	}
	if sortErr.Message != "no persons registered" {
		t.Errorf("unexpected message '%s'", sortErr.Message)
	}

	var reg api.RegisterResponse
	code := postJSON(t, ts.URL+api.PathRegister, api.RegisterRequest{Persons: []api.PersonRefs{
		{Name: "A", Embeddings: [][]float32{{1, 0}}},
		{Name: "B", Embeddings: [][]float32{{0, 1}}},
	}}, &reg)
	if code != http.StatusOK || reg.TotalPersons != 2 {
		t.Fatalf("registration failed: %d %+v", code, reg)
	}

	threshold := 0.5
	var sorted api.SortResponse
	code = postJSON(t, ts.URL+api.PathSort, api.SortRequest{
		Inbox:     []api.InboxItem{{File: "x.jpg", Embedding: []float32{0.9, 0.1}}},
		Threshold: &threshold,
	}, &sorted)
	if code != http.StatusOK {
		t.Fatalf("sort failed: %d", code)
	}
	if sorted.Assignments[0].Best == nil || sorted.Assignments[0].Best.Person != "A" {
		t.Errorf("expected A, got %+v", sorted.Assignments[0].Best)
	}

	resp, err := http.Get(ts.URL + api.PathHealth)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if len(health.Persons) != 2 {
		t.Errorf("expected 2 persons, got %v", health.Persons)
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + api.PathSort)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestServer_GetIdentity(t *testing.T) {
	ts := newTestServer(t)

	var registered api.RegisterResponse
	code := postJSON(t, ts.URL+api.PathRegister, api.RegisterRequest{Persons: []api.PersonRefs{
		{Name: "alice", Embeddings: [][]float32{{1, 0, 0}, {0.9, 0.1, 0}}},
	}}, &registered)
	if code != http.StatusOK {
		t.Fatalf("register failed with %d", code)
	}

	resp, err := http.Get(ts.URL + "/api/refs/alice")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var id api.IdentityResponse
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		t.Fatal(err)
	}
	if id.Name != "alice" || id.SampleCount != 2 || id.Dim != 3 {
		t.Errorf("unexpected identity %+v", id)
	}

	missing, err := http.Get(ts.URL + "/api/refs/bob")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown person, got %d", missing.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(missing.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Status != "error" || errResp.Message != "person not found" {
		t.Errorf("unexpected error body %+v", errResp)
	}
}
