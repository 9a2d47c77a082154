package models

import "time"

// TeamEntry is a confirmed participant of one tournament. Registration and
// payment happen in an external service; by the time an entry exists here it
// is final. Only the elimination flag changes during the tournament.
type TeamEntry struct {
	ID                int       `json:"id" db:"id"`
	TournamentID      int       `json:"tournament_id" db:"tournament_id"`
	TeamID            int       `json:"team_id" db:"team_id"`
	DisplayName       string    `json:"display_name" db:"display_name"`
	Eliminated        bool      `json:"eliminated" db:"eliminated"`
	EliminatedInRound *int      `json:"eliminated_in_round,omitempty" db:"eliminated_in_round"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
