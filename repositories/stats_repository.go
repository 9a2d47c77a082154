package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/scrimverse/tournament-engine/models"
)

var (
	ErrStatsNotFound       = errors.New("team statistics not found")
	ErrRoundAlreadyApplied = errors.New("round outcome already applied to statistics")
)

type StatsRepository interface {
	GetOrCreate(ctx context.Context, exec SQLExecutor, teamID int, gameName string) (*models.TeamStatistics, error)
	// ApplyDelta adds counters to one (team, game) row with a single UPDATE
	// so concurrent round completions across tournaments stay consistent.
	ApplyDelta(ctx context.Context, exec SQLExecutor, delta models.StatsDelta) error
	// MarkRoundProcessed inserts the idempotency marker for one round's
	// outcome; a second insert fails with ErrRoundAlreadyApplied.
	MarkRoundProcessed(ctx context.Context, exec SQLExecutor, roundID int) error
	Leaderboard(ctx context.Context, gameName string, limit int) ([]*models.TeamStatistics, error)
}

type postgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) StatsRepository {
	return &postgresStatsRepository{db: db}
}

func (r *postgresStatsRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const statsColumns = `id, team_id, game_name, tournament_wins, scrim_wins, kill_points, placement_points, total_points, updated_at`

func (r *postgresStatsRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, teamID int, gameName string) (*models.TeamStatistics, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO team_statistics (team_id, game_name)
		VALUES ($1, $2)
		ON CONFLICT (team_id, game_name) DO UPDATE SET team_id = EXCLUDED.team_id
		RETURNING ` + statsColumns
	var s models.TeamStatistics
	err := executor.QueryRowContext(ctx, query, teamID, gameName).Scan(
		&s.ID, &s.TeamID, &s.GameName, &s.TournamentWins, &s.ScrimWins,
		&s.KillPoints, &s.PlacementPoints, &s.TotalPoints, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create stats for team %d game %q: %w", teamID, gameName, err)
	}
	return &s, nil
}

func (r *postgresStatsRepository) ApplyDelta(ctx context.Context, exec SQLExecutor, d models.StatsDelta) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `
		UPDATE team_statistics SET
			tournament_wins = tournament_wins + $1,
			scrim_wins = scrim_wins + $2,
			kill_points = kill_points + $3,
			placement_points = placement_points + $4,
			total_points = total_points + $3 + $4,
			updated_at = NOW()
		WHERE team_id = $5 AND game_name = $6`,
		d.TournamentWins, d.ScrimWins, d.KillPoints, d.PlacementPoints, d.TeamID, d.GameName)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrStatsNotFound)
}

func (r *postgresStatsRepository) MarkRoundProcessed(ctx context.Context, exec SQLExecutor, roundID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`INSERT INTO processed_round_outcomes (round_id) VALUES ($1)`, roundID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrRoundAlreadyApplied
		}
		return err
	}
	return nil
}

func (r *postgresStatsRepository) Leaderboard(ctx context.Context, gameName string, limit int) ([]*models.TeamStatistics, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+statsColumns+`
		FROM team_statistics
		WHERE game_name = $1
		ORDER BY total_points DESC, kill_points DESC, team_id ASC
		LIMIT $2`, gameName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*models.TeamStatistics, 0)
	for rows.Next() {
		var s models.TeamStatistics
		if err := rows.Scan(&s.ID, &s.TeamID, &s.GameName, &s.TournamentWins, &s.ScrimWins,
			&s.KillPoints, &s.PlacementPoints, &s.TotalPoints, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}
