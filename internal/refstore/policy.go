package refstore

import "fmt"

// Policy selects how the store synchronizes writers with readers.
type Policy int

const (
	// PolicyLock guards a single mutable state with a read/write mutex.
	// Readers copy what they need while holding the read lock.
	PolicyLock Policy = iota
	// PolicyCopyOnWrite publishes an immutable state through an atomic
	// pointer. Writers clone, modify and swap; readers never block.
	PolicyCopyOnWrite
)

func (p Policy) String() string {
	switch p {
	case PolicyLock:
		return "lock"
	case PolicyCopyOnWrite:
		return "cow"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration value to a Policy. Empty means PolicyLock.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "lock":
		return PolicyLock, nil
	case "cow", "copy-on-write":
		return PolicyCopyOnWrite, nil
	default:
		return 0, fmt.Errorf("unknown reference store policy %q (expected lock or cow)", s)
	}
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the concurrency policy.
func WithPolicy(p Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}
