// Package model contains domain models passed between layers.
package model

import "strconv"

// Field names of a score document. They are kept short to match the
// leaderboard collection layout.
const (
	FieldUserID = "u"
	FieldScore  = "s"
)

// userIDPrefix prefixes the numeric part of every seeded user id.
const userIDPrefix = "u"

// ScoreRecord is a single leaderboard row.
type ScoreRecord struct {
	UserID string `bson:"u"`
	Score  int    `bson:"s"`
}

// UserID formats the user id for a global zero-based record index, e.g. 42 -> "u42".
func UserID(index int) string {
	return userIDPrefix + strconv.Itoa(index)
}
