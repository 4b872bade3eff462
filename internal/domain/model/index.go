package model

import (
	"strconv"
	"strings"
)

// Sort orders for index keys.
const (
	Ascending  = 1
	Descending = -1
)

// IndexKey is one field of an index together with its sort order.
type IndexKey struct {
	Field string
	Order int
}

// IndexSpec declares an index over score records.
type IndexSpec struct {
	Keys   []IndexKey
	Unique bool
}

// Name returns the index name the way MongoDB generates it, e.g. "s_-1_u_1".
func (s IndexSpec) Name() string {
	parts := make([]string, 0, len(s.Keys)*2)
	for _, k := range s.Keys {
		parts = append(parts, k.Field, strconv.Itoa(k.Order))
	}
	return strings.Join(parts, "_")
}

// SameKeys reports whether both specs index the same fields in the same order.
func (s IndexSpec) SameKeys(o IndexSpec) bool {
	if len(s.Keys) != len(o.Keys) {
		return false
	}
	for i := range s.Keys {
		if s.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}

// Leading returns the first key of the index. ok is false for an empty spec.
func (s IndexSpec) Leading() (IndexKey, bool) {
	if len(s.Keys) == 0 {
		return IndexKey{}, false
	}
	return s.Keys[0], true
}

// RankIndex orders records by score desc and breaks ties by user id asc.
// It is the index hinted by the examined-keys rank strategy.
func RankIndex() IndexSpec {
	return IndexSpec{Keys: []IndexKey{
		{Field: FieldScore, Order: Descending},
		{Field: FieldUserID, Order: Ascending},
	}}
}

// UserIndex enforces one record per user.
func UserIndex() IndexSpec {
	return IndexSpec{Keys: []IndexKey{{Field: FieldUserID, Order: Ascending}}, Unique: true}
}

// ScoreIndex serves the strictly-greater count of the simple strategy.
func ScoreIndex() IndexSpec {
	return IndexSpec{Keys: []IndexKey{{Field: FieldScore, Order: Descending}}}
}

// LeaderboardIndexes lists the indexes created after seeding.
func LeaderboardIndexes() []IndexSpec {
	return []IndexSpec{RankIndex(), UserIndex(), ScoreIndex()}
}
