package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "draft"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusRoundInProgress    TournamentStatus = "round_in_progress"
	StatusRoundClosed        TournamentStatus = "round_closed"
	StatusCompleted          TournamentStatus = "completed"
	StatusCanceled           TournamentStatus = "canceled"
)

// EventMode separates competitive tournaments from practice scrims.
// Statistics for the two are accumulated on separate counters.
type EventMode string

const (
	EventModeTournament EventMode = "tournament"
	EventModeScrim      EventMode = "scrim"
)

// allowedTransitions is the single source of truth for the tournament
// lifecycle. Completed and canceled are terminal.
var allowedTransitions = map[TournamentStatus][]TournamentStatus{
	StatusDraft:              {StatusRegistrationOpen, StatusCanceled},
	StatusRegistrationOpen:   {StatusRegistrationClosed, StatusCanceled},
	StatusRegistrationClosed: {StatusRoundInProgress, StatusCanceled},
	StatusRoundInProgress:    {StatusRoundClosed, StatusCompleted, StatusCanceled},
	StatusRoundClosed:        {StatusRoundInProgress, StatusCompleted, StatusCanceled},
	StatusCompleted:          {},
	StatusCanceled:           {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TournamentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further lifecycle operations are allowed.
func (s TournamentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Tournament is the root aggregate. Rounds, groups and matches hang off it.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	HostID          int              `json:"host_id" db:"host_id"`
	Title           string           `json:"title" db:"title"`
	Description     *string          `json:"description,omitempty" db:"description"`
	GameName        string           `json:"game_name" db:"game_name"`
	GameMode        string           `json:"game_mode" db:"game_mode"`
	EventMode       EventMode        `json:"event_mode" db:"event_mode"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	EntryFee        float64          `json:"entry_fee" db:"entry_fee"`
	PrizePool       float64          `json:"prize_pool" db:"prize_pool"`
	RegStart        time.Time        `json:"registration_start" db:"registration_start"`
	RegEnd          time.Time        `json:"registration_end" db:"registration_end"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	EndDate         time.Time        `json:"end_date" db:"end_date"`
	Status          TournamentStatus `json:"status" db:"status"`
	CurrentRound    int              `json:"current_round" db:"current_round"`
	TotalRounds     int              `json:"total_rounds" db:"total_rounds"`
	BannerKey       *string          `json:"-" db:"banner_key"`
	BannerURL       *string          `json:"banner_url,omitempty" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`

	// Populated by the service layer, not mapped directly.
	Rounds  []*Round     `json:"rounds,omitempty" db:"-"`
	Entries []*TeamEntry `json:"entries,omitempty" db:"-"`
}

// FinalPlacement is one row of a completed tournament's final ranking.
type FinalPlacement struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	EntryID      int    `json:"entry_id" db:"entry_id"`
	Placement    int    `json:"placement" db:"placement"`
	DisplayName  string `json:"display_name" db:"display_name"`
	TotalPoints  int    `json:"total_points" db:"total_points"`
	KillPoints   int    `json:"kill_points" db:"kill_points"`
}
