package models

import "time"

// TeamStatistics is the cumulative cross-tournament record for one team in
// one game. One row per (team, game); history for one game never influences
// another. Tournament and scrim wins are tracked on separate counters.
type TeamStatistics struct {
	ID              int       `json:"id" db:"id"`
	TeamID          int       `json:"team_id" db:"team_id"`
	GameName        string    `json:"game_name" db:"game_name"`
	TournamentWins  int       `json:"tournament_wins" db:"tournament_wins"`
	ScrimWins       int       `json:"scrim_wins" db:"scrim_wins"`
	KillPoints      int       `json:"kill_points" db:"kill_points"`
	PlacementPoints int       `json:"placement_points" db:"placement_points"`
	TotalPoints     int       `json:"total_points" db:"total_points"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// StatsDelta is one additive update to a (team, game) statistics row.
type StatsDelta struct {
	TeamID          int
	GameName        string
	TournamentWins  int
	ScrimWins       int
	KillPoints      int
	PlacementPoints int
}
