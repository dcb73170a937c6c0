package repository

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: severity DESC, then analysis id ASC. The BST comparator treats
// "less" as "ranks earlier", so an in-order traversal yields the ranking
// from most to least severe.

// severityScale is the fixed-point scale. Severities are 0-100 with a
// handful of meaningful decimals; fixed-point keeps tie comparison exact.
const severityScale = 1_000_000

type severityFP int64

func toFixedPoint(x float64) severityFP {
	if math.IsNaN(x) {
		return 0
	}
	scaled := x * severityScale
	if scaled > float64(math.MaxInt64) {
		return severityFP(math.MaxInt64)
	}
	if scaled < float64(math.MinInt64) {
		return severityFP(math.MinInt64)
	}
	return severityFP(math.Round(scaled))
}

func toFloat(x severityFP) float64 {
	return float64(x) / severityScale
}

// row holds the fixed-point severity plus the alert that set it.
type row struct {
	severity   severityFP
	alertID    string
	threat     string
	confidence float64
}

// treap node
type node struct {
	id       string
	severity severityFP
	prio     uint64
	left     *node
	right    *node
	size     int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aSev, aID) ranks earlier than (bSev, bID).
func less(aSev severityFP, aID string, bSev severityFP, bID string) bool {
	if aSev != bSev {
		return aSev > bSev
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func (s *TreapStore) insert(n *node, id string, severity severityFP) *node {
	if n == nil {
		return &node{id: id, severity: severity, prio: s.rng.Uint64(), size: 1}
	}
	if less(severity, id, n.severity, n.id) {
		n.left = s.insert(n.left, id, severity)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = s.insert(n.right, id, severity)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, severity severityFP) *node {
	if n == nil {
		return nil
	}
	if severity == n.severity && id == n.id {
		// Rotate the higher-priority child up until the node is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, severity)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, severity)
		}
	} else if less(severity, id, n.severity, n.id) {
		n.left = deleteNode(n.left, id, severity)
	} else {
		n.right = deleteNode(n.right, id, severity)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, rows map[string]row, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	collectTopN(n.left, limit, rows, out)

	if len(*out) < limit {
		if r, ok := rows[n.id]; ok {
			*out = append(*out, Entry{
				AnalysisID: n.id,
				Severity:   toFloat(r.severity),
				AlertID:    r.alertID,
				Threat:     r.threat,
				Confidence: r.confidence,
			})
		}
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, rows, out)
	}
}

// TreapStore keeps the ranking in a treap keyed by (severity, analysis id)
// with uniform random priorities. Updates and point ranks are O(log n)
// expected. Safe for concurrent use.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]row
	rng  *rand.Rand
}

// NewTreapStore constructs an empty ranking store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]row),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // treap balance, not security
	}

	return s
}

// UpdateBest implements Store.UpdateBest.
func (s *TreapStore) UpdateBest(ctx context.Context, analysisID string, severity float64) (bool, error) {
	return s.UpdateBestWithMeta(ctx, analysisID, severity, "", "", 0)
}

// UpdateBestWithMeta implements Store.UpdateBestWithMeta.
func (s *TreapStore) UpdateBestWithMeta(_ context.Context, analysisID string, severity float64, alertID string, threat string, confidence float64) (bool, error) {
	ns := toFixedPoint(severity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[analysisID]; ok {
		if ns <= old.severity { // not an escalation
			return false, nil
		}
		s.root = deleteNode(s.root, analysisID, old.severity)
	}
	s.byID[analysisID] = row{severity: ns, alertID: alertID, threat: threat, confidence: confidence}
	s.root = s.insert(s.root, analysisID, ns)
	return true, nil
}

// Rank returns the rank and severity for one analysis. Ranks are computed
// over the full in-order traversal; incident counts stay small enough that
// a point query never needs anything faster.
func (s *TreapStore) Rank(_ context.Context, analysisID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[analysisID]; !ok {
		return Entry{}, ErrNotFound
	}

	all := make([]Entry, 0, len(s.byID))
	collectAll(s.root, s.byID, &all)
	assignRanksWithTies(all)

	for _, e := range all {
		if e.AnalysisID == analysisID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// collectAll appends every entry in rank order.
func collectAll(n *node, rows map[string]row, out *[]Entry) {
	if n == nil {
		return
	}
	collectAll(n.left, rows, out)
	if r, ok := rows[n.id]; ok {
		*out = append(*out, Entry{
			AnalysisID: n.id,
			Severity:   toFloat(r.severity),
			AlertID:    r.alertID,
			Threat:     r.threat,
			Confidence: r.confidence,
		})
	}
	collectAll(n.right, rows, out)
}

// TopN returns the n most severe incidents.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, n)
	collectTopN(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of ranked incidents.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// assignRanksWithTies assigns ranks over entries already in rank order.
// Tied severities share a rank; the following entry takes the next
// consecutive rank.
func assignRanksWithTies(entries []Entry) {
	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		same := 1
		for j := i + 1; j < len(entries) && entries[j].Severity == entries[i].Severity; j++ {
			entries[j].Rank = currentRank
			same++
		}

		currentRank++
		i += same - 1
	}
}
