package dedupe

// defaultMaxSize caps claimed keys so leaked claims cannot grow memory
// without bound. Live analyses number in the dozens; the cap only matters
// when releases are missed.
const defaultMaxSize = 10000

// Option applies a configuration option to the in-memory guard.
type Option func(*memoryGuard)

// WithMaxSize sets the maximum number of claims to keep.
// maxSize > 0 bounds the guard with oldest-claim eviction; maxSize <= 0
// makes it unbounded.
func WithMaxSize(maxSize int) Option {
	return func(g *memoryGuard) {
		g.maxSize = maxSize
	}
}
