package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/okian/rankbench/internal/domain/model"
)

// Treap-based, in-memory Store implementation.
//
// The treap mirrors the rank index {s: -1, u: 1}: ordering is score DESC,
// then userID ASC. "less" means "scanned earlier", so in-order traversal
// walks the index the way a forward IXSCAN would. Nodes carry subtree sizes,
// which turns "how many keys precede this one" into an O(log n) walk.

// Explain stage names reported by the in-memory planner.
const (
	stageCovered    = "PROJECTION_COVERED"
	stageProjection = "PROJECTION_SIMPLE"
	stageLimit      = "LIMIT"
	stageFetch      = "FETCH"
)

// treap node
type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
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

// less returns true if (aScore, aID) is scanned before (bScore, bID) on the
// rank index.
func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore // higher score first
	}
	return aID < bID // tie-breaker by id asc
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

func insert(n *node, id string, score int, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// position counts the keys scanned before (score, id).
func position(n *node, score int, id string) int {
	pos := 0
	for n != nil {
		if less(n.score, n.id, score, id) {
			pos += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return pos
}

// countAbove counts keys with a score strictly greater than score. The empty
// id sorts before every user id, so position lands on the first key of the
// score group.
func countAbove(n *node, score int) int {
	return position(n, score, "")
}

// MemoryStore keeps the leaderboard in process. Records are keyed by user id,
// so a user id is unique whether or not the unique index was created.
type MemoryStore struct {
	mu      sync.RWMutex
	root    *node
	byID    map[string]int
	indexes []model.IndexSpec
	exists  bool
	closed  bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

// Drop implements Store.Drop.
func (s *MemoryStore) Drop(_ context.Context) (DropResult, error) {
	defer observe(opDrop, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return NotFound, ErrStoreClosed
	}
	if !s.exists {
		return NotFound, nil
	}
	s.root = nil
	s.byID = make(map[string]int)
	s.indexes = nil
	s.exists = false
	return Dropped, nil
}

// InsertMany implements Store.InsertMany. A batch is validated before any
// record is applied, so a rejected batch leaves the store untouched.
func (s *MemoryStore) InsertMany(_ context.Context, records []model.ScoreRecord) error {
	defer observe(opInsert, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := s.byID[rec.UserID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.UserID)
		}
		if _, ok := seen[rec.UserID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.UserID)
		}
		seen[rec.UserID] = struct{}{}
	}

	for _, rec := range records {
		s.byID[rec.UserID] = rec.Score
		s.root = insert(s.root, rec.UserID, rec.Score, rand.Uint64())
	}
	s.exists = true
	return nil
}

// CreateIndexes implements Store.CreateIndexes. Creating an index that
// already exists is a no-op, as it is on the server.
func (s *MemoryStore) CreateIndexes(_ context.Context, specs []model.IndexSpec) ([]string, error) {
	defer observe(opCreateIndexes, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		if len(spec.Keys) == 0 {
			return nil, fmt.Errorf("%w: index without keys", ErrInvalidQuery)
		}
		names = append(names, spec.Name())
		if s.hasIndex(spec) {
			continue
		}
		s.indexes = append(s.indexes, spec)
	}
	s.exists = true
	return names, nil
}

// ListIndexes implements Store.ListIndexes.
func (s *MemoryStore) ListIndexes(_ context.Context) ([]model.IndexSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return slices.Clone(s.indexes), nil
}

// FindByUser implements Store.FindByUser.
func (s *MemoryStore) FindByUser(_ context.Context, userID string) (model.ScoreRecord, error) {
	defer observe(opFind, time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ScoreRecord{}, ErrStoreClosed
	}
	score, ok := s.byID[userID]
	if !ok {
		return model.ScoreRecord{}, ErrNotFound
	}
	return model.ScoreRecord{UserID: userID, Score: score}, nil
}

// CountDocuments implements Store.CountDocuments in O(log n) for score
// ranges.
func (s *MemoryStore) CountDocuments(_ context.Context, filter model.Filter) (int64, error) {
	defer observe(opCount, time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}

	if filter.UserID != "" {
		score, ok := s.byID[filter.UserID]
		if !ok || !filter.Matches(model.ScoreRecord{UserID: filter.UserID, Score: score}) {
			return 0, nil
		}
		return 1, nil
	}
	if filter.ScoreAbove != nil {
		return int64(countAbove(s.root, *filter.ScoreAbove)), nil
	}
	return int64(len(s.byID)), nil
}

// Explain implements Store.Explain with a rough stand-in for the server's
// examined-key count: on a hit with a limit it reports the match's position
// in index order plus one, otherwise every key inside the score bounds. It
// does not model how the server counts keys, which may skip ahead on the
// user id bound, and the covered variant reports the same count as the
// plain one.
func (s *MemoryStore) Explain(_ context.Context, q model.HintedQuery) (model.ExecutionStats, error) {
	start := time.Now()
	defer observe(opExplain, start)

	if q.Limit < 0 {
		return model.ExecutionStats{}, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.ExecutionStats{}, ErrStoreClosed
	}
	if !s.hasIndex(q.Hint) {
		return model.ExecutionStats{}, fmt.Errorf("%w: %s", ErrIndexNotFound, q.Hint.Name())
	}

	score, found := s.byID[q.UserID]
	if found && q.ScoreLowerBound != nil && score < *q.ScoreLowerBound {
		found = false
	}

	var stats model.ExecutionStats
	lead, _ := q.Hint.Leading()
	switch lead.Field {
	case model.FieldUserID:
		// Point bounds on u: only the matching key is examined.
		if found {
			stats.TotalKeysExamined = 1
			stats.NReturned = 1
		}
	case model.FieldScore:
		inBounds := len(s.byID)
		if q.ScoreLowerBound != nil {
			inBounds = countAbove(s.root, *q.ScoreLowerBound-1)
		}
		switch {
		case found && q.Limit > 0:
			stats.TotalKeysExamined = int64(position(s.root, score, q.UserID) + 1)
			stats.NReturned = 1
		case found:
			stats.TotalKeysExamined = int64(inBounds)
			stats.NReturned = 1
		default:
			stats.TotalKeysExamined = int64(inBounds)
		}
	default:
		return model.ExecutionStats{}, fmt.Errorf("%w: unsupported hint %s", ErrInvalidQuery, q.Hint.Name())
	}

	covered := q.ScoreLowerBound != nil && projectionCovered(q.Projection, q.Hint)
	switch {
	case covered:
		stats.WinningStage = stageCovered
	case indexHasField(q.Hint, model.FieldUserID):
		// The user predicate is checked on index keys; only matches are fetched.
		stats.TotalDocsExamined = stats.NReturned
	default:
		stats.TotalDocsExamined = stats.TotalKeysExamined
	}
	if stats.WinningStage == "" {
		switch {
		case len(q.Projection) > 0:
			stats.WinningStage = stageProjection
		case q.Limit > 0:
			stats.WinningStage = stageLimit
		default:
			stats.WinningStage = stageFetch
		}
	}
	stats.ExecutionTimeMillis = time.Since(start).Milliseconds()
	return stats, nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// hasIndex assumes the lock is held.
func (s *MemoryStore) hasIndex(spec model.IndexSpec) bool {
	for _, idx := range s.indexes {
		if idx.SameKeys(spec) {
			return true
		}
	}
	return false
}

func indexHasField(spec model.IndexSpec, field string) bool {
	for _, k := range spec.Keys {
		if k.Field == field {
			return true
		}
	}
	return false
}

// projectionCovered reports whether every projected field lives in the index.
func projectionCovered(projection []string, spec model.IndexSpec) bool {
	if len(projection) == 0 {
		return false
	}
	for _, f := range projection {
		if !indexHasField(spec, f) {
			return false
		}
	}
	return true
}
