package repository

import "math/rand"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithPrioritySeed fixes the treap priority source, making tree shape
// deterministic for tests and benchmarks.
func WithPrioritySeed(seed int64) Option {
	return func(s *TreapStore) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // treap balance, not security
	}
}
