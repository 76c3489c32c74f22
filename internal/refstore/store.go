// Package refstore keeps one representative embedding per named identity.
//
// Every registration mean-pools the reference embeddings of an identity into
// a single vector, optionally L2-normalized, and replaces whatever was stored
// under that name before. The store lives for the lifetime of the process.
package refstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kozaktomas/photo-triage/internal/vector"
)

var (
	// ErrInvalidEmbeddings is returned when one identity's embeddings cannot
	// be aggregated (ragged or zero-length vectors). The whole batch is rejected.
	ErrInvalidEmbeddings = errors.New("invalid embeddings")
	// ErrDimensionMismatch is returned when a batch would leave the store
	// holding vectors of different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Identity is a named representative embedding.
type Identity struct {
	Name        string
	Embedding   []float32
	SampleCount int
}

// Dim returns the embedding length.
func (i Identity) Dim() int {
	return len(i.Embedding)
}

// Reference is one identity's raw input to Register.
type Reference struct {
	Name       string
	Embeddings [][]float32
}

// Registered describes an identity committed by Register.
type Registered struct {
	Name        string
	SampleCount int
	Dim         int
}

// state is the ordered identity table. Identities are replaced, never
// mutated, so embedding slices may be shared between clones.
type state struct {
	order []Identity
	index map[string]int
}

func newState() *state {
	return &state{index: make(map[string]int)}
}

func (st *state) clone() *state {
	next := &state{
		order: slices.Clone(st.order),
		index: make(map[string]int, len(st.index)),
	}
	for k, v := range st.index {
		next.index[k] = v
	}
	return next
}

// put overwrites in place to keep the original position, or appends.
func (st *state) put(id Identity) {
	if i, ok := st.index[id.Name]; ok {
		st.order[i] = id
		return
	}
	st.index[id.Name] = len(st.order)
	st.order = append(st.order, id)
}

// Store is safe for concurrent use under either Policy.
type Store struct {
	policy Policy

	// mu guards cur under PolicyLock and serializes writers under PolicyCopyOnWrite.
	mu  sync.RWMutex
	cur *state
	cow atomic.Pointer[state]
}

// New creates an empty store. The default policy is PolicyLock.
func New(opts ...Option) *Store {
	s := &Store{policy: PolicyLock}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == PolicyCopyOnWrite {
		s.cow.Store(newState())
	} else {
		s.cur = newState()
	}
	return s
}

// Policy returns the store's concurrency policy.
func (s *Store) Policy() Policy {
	return s.policy
}

func (s *Store) view(fn func(st *state)) {
	if s.policy == PolicyCopyOnWrite {
		fn(s.cow.Load())
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.cur)
}

// update runs fn against the writable state. fn must validate everything
// before its first mutation; under PolicyCopyOnWrite a failing fn discards
// the clone anyway.
func (s *Store) update(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == PolicyCopyOnWrite {
		next := s.cow.Load().clone()
		if err := fn(next); err != nil {
			return err
		}
		s.cow.Store(next)
		return nil
	}
	return fn(s.cur)
}

// Register aggregates and stores every reference in refs.
//
// References with a blank name or no embeddings are skipped and are absent
// from the result. Any other failure rejects the whole batch and leaves the
// store unchanged. Names repeated within one batch are applied in order, so
// the last one wins.
func (s *Store) Register(refs []Reference, normalize bool) ([]Registered, error) {
	pending := make([]Identity, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name == "" || len(ref.Embeddings) == 0 {
			continue
		}

		mean, err := vector.Mean(ref.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("%w: identity %q: %w", ErrInvalidEmbeddings, name, err)
		}
		if normalize {
			mean = vector.Normalize(mean)
		}
		pending = append(pending, Identity{
			Name:        name,
			Embedding:   mean,
			SampleCount: len(ref.Embeddings),
		})
	}

	if len(pending) == 0 {
		return []Registered{}, nil
	}

	dim := pending[0].Dim()
	replaced := make(map[string]struct{}, len(pending))
	for _, id := range pending {
		if id.Dim() != dim {
			return nil, fmt.Errorf("%w: identity %q has %d dimensions, identity %q has %d",
				ErrDimensionMismatch, id.Name, id.Dim(), pending[0].Name, dim)
		}
		replaced[id.Name] = struct{}{}
	}

	err := s.update(func(st *state) error {
		for _, existing := range st.order {
			if _, ok := replaced[existing.Name]; ok {
				continue
			}
			if existing.Dim() != dim {
				return fmt.Errorf("%w: stored identities have %d dimensions, batch has %d",
					ErrDimensionMismatch, existing.Dim(), dim)
			}
		}
		for _, id := range pending {
			st.put(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	registered := make([]Registered, len(pending))
	for i, id := range pending {
		registered[i] = Registered{Name: id.Name, SampleCount: id.SampleCount, Dim: id.Dim()}
	}
	return registered, nil
}

// Snapshot returns the identities in insertion order. Overwritten names keep
// the position of their first registration. The embeddings are shared with
// the store and must not be modified.
func (s *Store) Snapshot() []Identity {
	var out []Identity
	s.view(func(st *state) {
		out = slices.Clone(st.order)
	})
	return out
}

// Get looks up an identity by exact name.
func (s *Store) Get(name string) (Identity, bool) {
	var (
		id Identity
		ok bool
	)
	s.view(func(st *state) {
		var i int
		if i, ok = st.index[name]; ok {
			id = st.order[i]
		}
	})
	return id, ok
}

// Names returns identity names in snapshot order.
func (s *Store) Names() []string {
	var names []string
	s.view(func(st *state) {
		names = make([]string, len(st.order))
		for i, id := range st.order {
			names[i] = id.Name
		}
	})
	return names
}

// Len returns the number of identities.
func (s *Store) Len() int {
	var n int
	s.view(func(st *state) {
		n = len(st.order)
	})
	return n
}

// Dim returns the dimension of the stored embeddings, or 0 when empty.
func (s *Store) Dim() int {
	var dim int
	s.view(func(st *state) {
		if len(st.order) > 0 {
			dim = st.order[0].Dim()
		}
	})
	return dim
}
