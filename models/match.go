package models

import "time"

// MatchStatus tracks one match's lifecycle inside its group.
// A finalized match's scores are immutable until an explicit reopen.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchScored    MatchStatus = "scored"
	MatchFinalized MatchStatus = "finalized"
)

// Match is one scored contest within a group. A group hosts MatchCount
// matches (best-of-N), numbered 1..N.
type Match struct {
	ID           int         `json:"id" db:"id"`
	GroupID      int         `json:"group_id" db:"group_id"`
	Number       int         `json:"number" db:"number"`
	Status       MatchStatus `json:"status" db:"status"`
	RoomID       *string     `json:"room_id,omitempty" db:"room_id"`
	RoomPassword *string     `json:"room_password,omitempty" db:"room_password"`
	StartedAt    *time.Time  `json:"started_at,omitempty" db:"started_at"`
	EndedAt      *time.Time  `json:"ended_at,omitempty" db:"ended_at"`

	Scores []*MatchScoreEntry `json:"scores,omitempty" db:"-"`
}

// CanEditRoom reports whether the host may still change lobby credentials.
func (m *Match) CanEditRoom() bool {
	return m.Status == MatchScheduled
}

// MatchScoreEntry is one team's result in one match. Unique per
// (match, entry); resubmitting before the match is finalized overwrites.
type MatchScoreEntry struct {
	ID              int       `json:"id" db:"id"`
	MatchID         int       `json:"match_id" db:"match_id"`
	EntryID         int       `json:"entry_id" db:"entry_id"`
	KillPoints      int       `json:"kill_points" db:"kill_points"`
	PlacementPoints int       `json:"placement_points" db:"placement_points"`
	TotalPoints     int       `json:"total_points" db:"total_points"`
	SubmittedAt     time.Time `json:"submitted_at" db:"submitted_at"`
}
