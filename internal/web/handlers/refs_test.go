package handlers

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-triage/internal/api"
	"github.com/kozaktomas/photo-triage/internal/refstore"
	"github.com/kozaktomas/photo-triage/internal/vector"
)

func TestRefsHandler_Register_Success(t *testing.T) {
	store := storeWith(t)
	handler := NewRefsHandler(store, discardLogger())

	req := jsonRequest(http.MethodPost, "/api/refs/register", `{
		"persons": [
			{"name": "alice", "embeddings": [[1, 0], [0, 1]]},
			{"name": "bob", "embeddings": [[0, 2]]}
		]
	}`)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result api.RegisterResponse
	parseJSONResponse(t, recorder, &result)

	if result.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result.Status)
	}
	if strings.Join(result.Registered, ",") != "alice,bob" {
		t.Errorf("expected registered [alice bob], got %v", result.Registered)
	}
	if result.TotalPersons != 2 {
		t.Errorf("expected total_persons 2, got %d", result.TotalPersons)
	}

	alice, ok := store.Get("alice")
	if !ok {
		t.Fatal("alice not stored")
	}
	if n := vector.Norm(alice.Embedding); math.Abs(n-1) > 1e-6 {
		t.Errorf("expected normalized embedding by default, norm %v", n)
	}
	if alice.SampleCount != 2 {
		t.Errorf("expected sample count 2, got %d", alice.SampleCount)
	}
}

func TestRefsHandler_Register_NormalizeFalse(t *testing.T) {
	store := storeWith(t)
	handler := NewRefsHandler(store, discardLogger())

	req := jsonRequest(http.MethodPost, "/api/refs/register",
		`{"persons": [{"name": "raw", "embeddings": [[2, 4], [4, 8]]}], "normalize": false}`)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	raw, _ := store.Get("raw")
	if len(raw.Embedding) != 2 || raw.Embedding[0] != 3 || raw.Embedding[1] != 6 {
		t.Errorf("expected raw mean [3 6], got %v", raw.Embedding)
	}
}

func TestRefsHandler_Register_SkipsBlankAndEmpty(t *testing.T) {
	handler := NewRefsHandler(storeWith(t), discardLogger())

	req := jsonRequest(http.MethodPost, "/api/refs/register", `{
		"persons": [
			{"name": "  ", "embeddings": [[1, 0]]},
			{"name": "nobody", "embeddings": []},
			{"embeddings": [[1, 0]]},
			{"name": "carol", "embeddings": [[1, 0]]}
		]
	}`)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result api.RegisterResponse
	parseJSONResponse(t, recorder, &result)
	if len(result.Registered) != 1 || result.Registered[0] != "carol" {
		t.Errorf("expected only carol, got %v", result.Registered)
	}
}

func TestRefsHandler_Register_EmptyBody(t *testing.T) {
	handler := NewRefsHandler(storeWith(t), discardLogger())

	recorder := httptest.NewRecorder()
	handler.Register(recorder, httptest.NewRequest(http.MethodPost, "/api/refs/register", http.NoBody))

	assertStatusCode(t, recorder, http.StatusOK)
	if got := recorder.Body.String(); got != `{"status":"ok","registered":[],"total_persons":0}`+"\n" {
		t.Errorf("unexpected body %s", got)
	}
}

func TestRefsHandler_Register_RaggedEmbeddings(t *testing.T) {
	store := storeWith(t, refstore.Reference{Name: "existing", Embeddings: [][]float32{{1, 0}}})
	handler := NewRefsHandler(store, discardLogger())

	req := jsonRequest(http.MethodPost, "/api/refs/register", `{
		"persons": [
			{"name": "ok", "embeddings": [[0, 1]]},
			{"name": "broken", "embeddings": [[1, 0], [1, 0, 0]]}
		]
	}`)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)

	var result api.ErrorResponse
	parseJSONResponse(t, recorder, &result)
	if result.Status != "error" {
		t.Errorf("expected status 'error', got '%s'", result.Status)
	}
	if !strings.Contains(result.Message, "broken") {
		t.Errorf("expected message to name the identity, got '%s'", result.Message)
	}
	if store.Len() != 1 {
		t.Errorf("expected failed batch to leave store untouched, got %v", store.Names())
	}
}

func TestRefsHandler_Register_DimensionMismatch(t *testing.T) {
	store := storeWith(t, refstore.Reference{Name: "existing", Embeddings: [][]float32{{1, 0}}})
	handler := NewRefsHandler(store, discardLogger())

	req := jsonRequest(http.MethodPost, "/api/refs/register",
		`{"persons": [{"name": "other", "embeddings": [[1, 0, 0, 0]]}]}`)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	if store.Len() != 1 {
		t.Errorf("expected store unchanged, got %v", store.Names())
	}
}

func TestRefsHandler_Register_InvalidJSON(t *testing.T) {
	handler := NewRefsHandler(storeWith(t), discardLogger())

	recorder := httptest.NewRecorder()
	handler.Register(recorder, jsonRequest(http.MethodPost, "/api/refs/register", `{"persons": "nope"}`))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

// withURLParam attaches a chi route parameter to the request
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestRefsHandler_Get(t *testing.T) {
	handler := NewRefsHandler(storeWith(t,
		refstore.Reference{Name: "alice", Embeddings: [][]float32{{1, 0}, {0, 1}, {1, 1}}},
	), discardLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/refs/alice", nil), "name", "alice")
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result api.IdentityResponse
	parseJSONResponse(t, recorder, &result)
	if result.Name != "alice" || result.SampleCount != 3 || result.Dim != 2 {
		t.Errorf("unexpected identity %+v", result)
	}
}

func TestRefsHandler_Get_NotFound(t *testing.T) {
	handler := NewRefsHandler(storeWith(t), discardLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/refs/bob", nil), "name", "bob")
	recorder := httptest.NewRecorder()
	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "person not found")
}
