package model

// Filter selects score records. The zero Filter matches every record.
type Filter struct {
	// UserID restricts the match to a single user when non-empty.
	UserID string
	// ScoreAbove keeps records whose score is strictly greater, when set.
	ScoreAbove *int
}

// Matches reports whether rec satisfies the filter.
func (f Filter) Matches(rec ScoreRecord) bool {
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if f.ScoreAbove != nil && rec.Score <= *f.ScoreAbove {
		return false
	}
	return true
}

// ScoreAbove builds a filter for records scoring strictly more than score.
func ScoreAbove(score int) Filter {
	return Filter{ScoreAbove: &score}
}

// HintedQuery is a find that forces a specific index and is only explained,
// never materialized.
type HintedQuery struct {
	UserID     string
	Hint       IndexSpec
	Projection []string
	Limit      int
	// ScoreLowerBound adds an inclusive lower bound on the score when set.
	// With it the planner can answer the query from the rank index alone.
	ScoreLowerBound *int
}

// ExecutionStats is the subset of an executionStats explain report the
// harness reads.
type ExecutionStats struct {
	NReturned           int64  `bson:"nReturned"`
	TotalKeysExamined   int64  `bson:"totalKeysExamined"`
	TotalDocsExamined   int64  `bson:"totalDocsExamined"`
	ExecutionTimeMillis int64  `bson:"executionTimeMillis"`
	WinningStage        string `bson:"-"`
}

// Covered reports whether the plan returned documents without fetching any.
func (s ExecutionStats) Covered() bool {
	return s.NReturned > 0 && s.TotalDocsExamined == 0
}
