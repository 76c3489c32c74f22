// Package api defines the JSON contract shared by the HTTP handlers and
// the client used by the local commands.
package api

import "github.com/kozaktomas/photo-triage/internal/classifier"

// Status values carried in every response.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Routes, relative to the server root.
const (
	PathHealth   = "/api/health"
	PathRegister = "/api/refs/register"
	PathSort     = "/api/sort"
	PathIdentity = "/api/refs/{name}"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse reports the registered identity names.
type HealthResponse struct {
	Status  string   `json:"status"`
	Persons []string `json:"persons"`
}

// PersonRefs carries the reference embeddings of one identity.
type PersonRefs struct {
	Name       string      `json:"name"`
	Embeddings [][]float32 `json:"embeddings"`
}

// RegisterRequest is the body of POST /api/refs/register.
type RegisterRequest struct {
	Persons []PersonRefs `json:"persons"`
	// Normalize defaults to true when omitted.
	Normalize *bool `json:"normalize,omitempty"`
}

// NormalizeOrDefault resolves the optional normalize flag.
func (r *RegisterRequest) NormalizeOrDefault() bool {
	if r.Normalize == nil {
		return true
	}
	return *r.Normalize
}

// RegisterResponse lists the names committed by one registration.
type RegisterResponse struct {
	Status       string   `json:"status"`
	Registered   []string `json:"registered"`
	TotalPersons int      `json:"total_persons"`
}

// IdentityResponse describes one registered identity.
type IdentityResponse struct {
	Status      string `json:"status"`
	Name        string `json:"name"`
	SampleCount int    `json:"sample_count"`
	Dim         int    `json:"dim"`
}

// InboxItem is one unknown embedding.
type InboxItem struct {
	File      string    `json:"file"`
	Embedding []float32 `json:"embedding"`
}

// SortRequest is the body of POST /api/sort.
type SortRequest struct {
	Inbox []InboxItem `json:"inbox"`
	// Threshold defaults to classifier.DefaultThreshold when omitted.
	Threshold  *float64 `json:"threshold,omitempty"`
	MultiLabel bool     `json:"multi_label"`
}

// ThresholdOrDefault resolves the optional threshold.
func (r *SortRequest) ThresholdOrDefault() float64 {
	if r.Threshold == nil {
		return classifier.DefaultThreshold
	}
	return *r.Threshold
}

// Match is one identity and its cosine similarity.
type Match struct {
	Person string  `json:"person"`
	Score  float64 `json:"score"`
}

// Assignment is the result for one inbox item. Best is null below threshold.
type Assignment struct {
	File string  `json:"file"`
	Best *Match  `json:"best"`
	All  []Match `json:"all"`
}

// SortResponse is the body of a successful POST /api/sort.
type SortResponse struct {
	Status      string       `json:"status"`
	Assignments []Assignment `json:"assignments"`
	Persons     []string     `json:"persons"`
	Threshold   float64      `json:"threshold"`
}

// NewSortResponse converts a classifier batch to its wire form.
func NewSortResponse(b *classifier.Batch) SortResponse {
	assignments := make([]Assignment, len(b.Assignments))
	for i, a := range b.Assignments {
		all := make([]Match, len(a.All))
		for j, s := range a.All {
			all[j] = Match{Person: s.Person, Score: s.Score}
		}
		out := Assignment{File: a.File, All: all}
		if a.Best != nil {
			out.Best = &Match{Person: a.Best.Person, Score: a.Best.Score}
		}
		assignments[i] = out
	}

	persons := b.Persons
	if persons == nil {
		persons = []string{}
	}
	return SortResponse{
		Status:      StatusOK,
		Assignments: assignments,
		Persons:     persons,
		Threshold:   b.Threshold,
	}
}
