// Package classifier scores unknown embeddings against the registered
// identities by cosine similarity and applies the threshold policy.
package classifier

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/kozaktomas/photo-triage/internal/refstore"
	"github.com/kozaktomas/photo-triage/internal/vector"
)

// DefaultThreshold is the minimum cosine similarity for a match when the
// caller does not pick one.
const DefaultThreshold = 0.32

var (
	// ErrNoIdentities is returned when there is nothing to classify against.
	ErrNoIdentities = errors.New("no persons registered")
	// ErrDimensionMismatch is returned when an unknown embedding has a
	// different length than the registered identities.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Snapshotter provides a consistent view of the registered identities.
type Snapshotter interface {
	Snapshot() []refstore.Identity
}

// Item is one unknown embedding to classify.
type Item struct {
	File      string
	Embedding []float32
}

// Score is the similarity of an item to one identity.
type Score struct {
	Person string
	Score  float64
}

// Assignment is the classification result for one Item.
type Assignment struct {
	File string
	// Best is the top-ranked identity if it reaches the threshold.
	Best *Score
	// All is every identity ranked by score, or only those reaching the
	// threshold in multi-label mode.
	All []Score
}

// Batch is the result of one Classify call.
type Batch struct {
	Assignments []Assignment
	// Persons and Threshold echo what the batch was scored against.
	Persons   []string
	Threshold float64
}

// Options controls the decision policy.
type Options struct {
	Threshold  float64
	MultiLabel bool
}

// Classifier reads identities from a Snapshotter. It never writes.
type Classifier struct {
	source Snapshotter
}

// New creates a Classifier over source.
func New(source Snapshotter) *Classifier {
	return &Classifier{source: source}
}

// Classify scores items against one snapshot of the source.
func (c *Classifier) Classify(items []Item, opts Options) (*Batch, error) {
	return Classify(c.source.Snapshot(), items, opts)
}

// matrix holds one unit-length row per identity.
type matrix struct {
	names []string
	rows  [][]float64
	dim   int
}

// newMatrix re-normalizes every representative embedding so scoring does
// not depend on how it was registered.
func newMatrix(identities []refstore.Identity) *matrix {
	m := &matrix{
		names: make([]string, len(identities)),
		rows:  make([][]float64, len(identities)),
	}
	for i, id := range identities {
		m.names[i] = id.Name
		m.rows[i] = vector.Unit(id.Embedding)
	}
	if len(identities) > 0 {
		m.dim = identities[0].Dim()
	}
	return m
}

// rank returns the cosine similarity of unit against every row, sorted by
// score descending. Equal scores keep row order.
func (m *matrix) rank(unit []float64) []Score {
	scores := make([]Score, len(m.rows))
	for i, row := range m.rows {
		// Kept in float64: rounding to float32 can move a score across an
		// inclusive threshold.
		scores[i] = Score{Person: m.names[i], Score: vector.Dot(row, unit)}
	}
	slices.SortStableFunc(scores, func(a, b Score) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scores
}

// Classify scores items against identities. Assignments are returned in
// input order.
func Classify(identities []refstore.Identity, items []Item, opts Options) (*Batch, error) {
	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}

	m := newMatrix(identities)
	for _, row := range m.rows {
		if len(row) != m.dim {
			return nil, fmt.Errorf("%w: registered identities have mixed dimensions", ErrDimensionMismatch)
		}
	}

	assignments := make([]Assignment, len(items))
	for i, item := range items {
		if len(item.Embedding) == 0 {
			assignments[i] = Assignment{File: item.File, All: []Score{}}
			continue
		}
		if len(item.Embedding) != m.dim {
			return nil, fmt.Errorf("%w: %q has %d dimensions, identities have %d",
				ErrDimensionMismatch, item.File, len(item.Embedding), m.dim)
		}
		assignments[i] = decide(item.File, m.rank(vector.Unit(item.Embedding)), opts)
	}

	return &Batch{
		Assignments: assignments,
		Persons:     m.names,
		Threshold:   opts.Threshold,
	}, nil
}

// decide applies the threshold to a ranked score list.
func decide(file string, ranked []Score, opts Options) Assignment {
	a := Assignment{File: file, All: ranked}
	if len(ranked) > 0 && ranked[0].Score >= opts.Threshold {
		best := ranked[0]
		a.Best = &best
	}
	if opts.MultiLabel {
		kept := make([]Score, 0, len(ranked))
		for _, s := range ranked {
			if s.Score >= opts.Threshold {
				kept = append(kept, s)
			}
		}
		a.All = kept
	}
	return a
}
