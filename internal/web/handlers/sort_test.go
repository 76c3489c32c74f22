package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/refstore"
)

func createSortHandlerForTest(t *testing.T) *SortHandler {
	t.Helper()
	store := storeWith(t,
		refstore.Reference{Name: "A", Embeddings: [][]float32{{1, 0}}},
		refstore.Reference{Name: "B", Embeddings: [][]float32{{0, 1}}},
	)
	return NewSortHandler(store, discardLogger())
}

func TestSortHandler_Sort_Success(t *testing.T) {
	handler := createSortHandlerForTest(t)

	req := jsonRequest(http.MethodPost, "/api/sort",
		`{"inbox": [{"file": "x.jpg", "embedding": [0.9, 0.1]}], "threshold": 0.5}`)
	recorder := httptest.NewRecorder()
	handler.Sort(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result api.SortResponse
	parseJSONResponse(t, recorder, &result)

	if result.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result.Status)
	}
	if result.Threshold != 0.5 {
		t.Errorf("expected threshold echo 0.5, got %v", result.Threshold)
	}
	if len(result.Persons) != 2 || result.Persons[0] != "A" || result.Persons[1] != "B" {
		t.Errorf("expected persons [A B], got %v", result.Persons)
	}
	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}

	a := result.Assignments[0]
	if a.File != "x.jpg" {
		t.Errorf("expected file 'x.jpg', got '%s'", a.File)
	}
	if a.Best == nil || a.Best.Person != "A" || math.Abs(a.Best.Score-0.994) > 1e-3 {
		t.Errorf("expected best A ~0.994, got %+v", a.Best)
	}
	if len(a.All) != 2 || a.All[0].Person != "A" || a.All[1].Person != "B" {
		t.Errorf("expected ranked [A B], got %+v", a.All)
	}
	if math.Abs(a.All[1].Score-0.110) > 1e-3 {
		t.Errorf("expected B ~0.110, got %v", a.All[1].Score)
	}
}

func TestSortHandler_Sort_DefaultThreshold(t *testing.T) {
	handler := createSortHandlerForTest(t)

	recorder := httptest.NewRecorder()
	handler.Sort(recorder, jsonRequest(http.MethodPost, "/api/sort", `{"inbox": []}`))

	assertStatusCode(t, recorder, http.StatusOK)

	var result api.SortResponse
	parseJSONResponse(t, recorder, &result)
	if result.Threshold != 0.32 {
		t.Errorf("expected default threshold 0.32, got %v", result.Threshold)
	}
	if result.Assignments == nil || len(result.Assignments) != 0 {
		t.Errorf("expected empty assignments, got %v", result.Assignments)
	}
}

func TestSortHandler_Sort_MultiLabel(t *testing.T) {
	handler := createSortHandlerForTest(t)

	req := jsonRequest(http.MethodPost, "/api/sort",
		`{"inbox": [{"file": "x.jpg", "embedding": [0.9, 0.1]}], "threshold": 0.99, "multi_label": true}`)
	recorder := httptest.NewRecorder()
	handler.Sort(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result api.SortResponse
	parseJSONResponse(t, recorder, &result)
	all := result.Assignments[0].All
	if len(all) != 1 || all[0].Person != "A" {
		t.Errorf("expected only A above threshold, got %+v", all)
	}
}

func TestSortHandler_Sort_EmptyEmbedding(t *testing.T) {
	handler := createSortHandlerForTest(t)

	req := jsonRequest(http.MethodPost, "/api/sort", `{"inbox": [
		{"file": "none.jpg", "embedding": []},
		{"file": "missing.jpg"},
		{"file": "b.jpg", "embedding": [0, 1]}
	]}`)
	recorder := httptest.NewRecorder()
	handler.Sort(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var raw struct {
		Assignments []map[string]json.RawMessage `json:"assignments"`
	}
	parseJSONResponse(t, recorder, &raw)
	if len(raw.Assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(raw.Assignments))
	}
	for _, idx := range []int{0, 1} {
		a := raw.Assignments[idx]
		if string(a["best"]) != "null" {
			t.Errorf("assignment %d: expected best null, got %s", idx, a["best"])
		}
		if string(a["all"]) != "[]" {
			t.Errorf("assignment %d: expected all [], got %s", idx, a["all"])
		}
	}
	if string(raw.Assignments[2]["best"]) == "null" {
		t.Error("expected b.jpg to match")
	}
}

func TestSortHandler_Sort_NoPersons(t *testing.T) {
	handler := NewSortHandler(storeWith(t), discardLogger())

	recorder := httptest.NewRecorder()
	handler.Sort(recorder, jsonRequest(http.MethodPost, "/api/sort",
		`{"inbox": [{"file": "x.jpg", "embedding": [1, 0]}]}`))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "no persons registered")
}

func TestSortHandler_Sort_DimensionMismatch(t *testing.T) {
	handler := createSortHandlerForTest(t)

	recorder := httptest.NewRecorder()
	handler.Sort(recorder, jsonRequest(http.MethodPost, "/api/sort",
		`{"inbox": [{"file": "wide.jpg", "embedding": [1, 0, 0]}]}`))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestSortHandler_Sort_InvalidJSON(t *testing.T) {
	handler := createSortHandlerForTest(t)

	recorder := httptest.NewRecorder()
	handler.Sort(recorder, jsonRequest(http.MethodPost, "/api/sort", `not json`))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}
