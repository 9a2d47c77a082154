package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FormationStrategy selects how a round's entries are partitioned into groups.
// It is configured explicitly per round rather than inferred from the game.
type FormationStrategy string

const (
	FormationMultiTeam  FormationStrategy = "multi_team"
	FormationHeadToHead FormationStrategy = "head_to_head"
)

func (s FormationStrategy) Valid() bool {
	return s == FormationMultiTeam || s == FormationHeadToHead
}

// QualificationKind selects how advancing teams are chosen when a round closes.
type QualificationKind string

const (
	QualifyTopKPerGroup       QualificationKind = "top_k_per_group"
	QualifyWinnerOfTopNGroups QualificationKind = "winner_of_top_n_groups"
)

func (k QualificationKind) Valid() bool {
	return k == QualifyTopKPerGroup || k == QualifyWinnerOfTopNGroups
}

// QualificationRule is the structured per-round qualification configuration.
// Count is K for top_k_per_group and N for winner_of_top_n_groups.
type QualificationRule struct {
	Kind  QualificationKind `json:"kind"`
	Count int               `json:"count"`
}

// Stored as a JSONB column.
func (q QualificationRule) Value() (driver.Value, error) {
	return json.Marshal(q)
}

func (q *QualificationRule) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, q)
	case string:
		return json.Unmarshal([]byte(v), q)
	default:
		return fmt.Errorf("unsupported type %T for QualificationRule", src)
	}
}

// RoundStatus tracks one round's lifecycle within its tournament.
type RoundStatus string

const (
	RoundConfigured RoundStatus = "configured"
	RoundInProgress RoundStatus = "in_progress"
	RoundClosed     RoundStatus = "closed"
)

// Round is one progression stage of a tournament.
type Round struct {
	ID            int               `json:"id" db:"id"`
	TournamentID  int               `json:"tournament_id" db:"tournament_id"`
	Number        int               `json:"number" db:"number"`
	Strategy      FormationStrategy `json:"strategy" db:"strategy"`
	Capacity      int               `json:"capacity" db:"capacity"`
	MatchCount    int               `json:"match_count" db:"match_count"`
	Qualification QualificationRule `json:"qualification" db:"qualification"`
	Status        RoundStatus       `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	ClosedAt      *time.Time        `json:"closed_at,omitempty" db:"closed_at"`

	Groups []*Group `json:"groups,omitempty" db:"-"`
}
