package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scrimverse/tournament-engine/models"
)

var ErrScoreNotFound = errors.New("match score entry not found")

type ScoreRepository interface {
	// Upsert inserts or overwrites the (match, entry) score. Retried
	// submissions replace the previous value rather than accumulating.
	Upsert(ctx context.Context, exec SQLExecutor, score *models.MatchScoreEntry) error
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchScoreEntry, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error)
	ListFinalizedByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error)
	CountByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error)
}

type postgresScoreRepository struct {
	db *sql.DB
}

func NewPostgresScoreRepository(db *sql.DB) ScoreRepository {
	return &postgresScoreRepository{db: db}
}

func (r *postgresScoreRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresScoreRepository) Upsert(ctx context.Context, exec SQLExecutor, s *models.MatchScoreEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO match_scores (match_id, entry_id, kill_points, placement_points, total_points)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id, entry_id) DO UPDATE SET
			kill_points = EXCLUDED.kill_points,
			placement_points = EXCLUDED.placement_points,
			total_points = EXCLUDED.total_points,
			submitted_at = NOW()
		RETURNING id, submitted_at`
	err := executor.QueryRowContext(ctx, query,
		s.MatchID, s.EntryID, s.KillPoints, s.PlacementPoints, s.TotalPoints,
	).Scan(&s.ID, &s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("upsert score for match %d entry %d: %w", s.MatchID, s.EntryID, err)
	}
	return nil
}

const scoreColumns = `id, match_id, entry_id, kill_points, placement_points, total_points, submitted_at`

func (r *postgresScoreRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchScoreEntry, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM match_scores WHERE match_id = $1 ORDER BY entry_id ASC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresScoreRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT s.id, s.match_id, s.entry_id, s.kill_points, s.placement_points, s.total_points, s.submitted_at
		FROM match_scores s
		JOIN matches m ON m.id = s.match_id
		WHERE m.group_id = $1
		ORDER BY s.match_id ASC, s.entry_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

// ListFinalizedByGroup returns only scores belonging to finalized matches.
// Standings are computed from this set so an unfinalized correction never
// leaks into the ranking.
func (r *postgresScoreRepository) ListFinalizedByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT s.id, s.match_id, s.entry_id, s.kill_points, s.placement_points, s.total_points, s.submitted_at
		FROM match_scores s
		JOIN matches m ON m.id = s.match_id
		WHERE m.group_id = $1 AND m.status = 'finalized'
		ORDER BY s.match_id ASC, s.entry_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresScoreRepository) collect(rows *sql.Rows) ([]*models.MatchScoreEntry, error) {
	scores := make([]*models.MatchScoreEntry, 0)
	for rows.Next() {
		var s models.MatchScoreEntry
		if err := rows.Scan(&s.ID, &s.MatchID, &s.EntryID, &s.KillPoints, &s.PlacementPoints, &s.TotalPoints, &s.SubmittedAt); err != nil {
			return nil, err
		}
		scores = append(scores, &s)
	}
	return scores, rows.Err()
}

func (r *postgresScoreRepository) CountByMatch(ctx context.Context, exec SQLExecutor, matchID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_scores WHERE match_id = $1`, matchID).Scan(&count)
	return count, err
}
