package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scrimverse/tournament-engine/models"
)

type StandingRepository interface {
	// ReplaceForGroup atomically swaps the cached standings of one group.
	// The cache is always rewritten whole from the score log; rows are never
	// patched in place, so concurrent recomputes are last-writer-wins-safe.
	ReplaceForGroup(ctx context.Context, exec SQLExecutor, groupID int, standings []*models.GroupStanding) error
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.GroupStanding, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) ReplaceForGroup(ctx context.Context, exec SQLExecutor, groupID int, standings []*models.GroupStanding) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx,
		`DELETE FROM group_standings WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("clear standings for group %d: %w", groupID, err)
	}

	query := `
		INSERT INTO group_standings
			(group_id, entry_id, display_name, kill_points, placement_points, total_points, rank, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, updated_at`
	for _, s := range standings {
		err := executor.QueryRowContext(ctx, query,
			groupID, s.EntryID, s.DisplayName, s.KillPoints, s.PlacementPoints, s.TotalPoints, s.Rank,
		).Scan(&s.ID, &s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert standing for entry %d: %w", s.EntryID, err)
		}
	}
	return nil
}

func (r *postgresStandingRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.GroupStanding, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT id, group_id, entry_id, display_name, kill_points, placement_points, total_points, rank, updated_at
		FROM group_standings
		WHERE group_id = $1
		ORDER BY rank ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.GroupStanding, 0)
	for rows.Next() {
		var s models.GroupStanding
		if err := rows.Scan(&s.ID, &s.GroupID, &s.EntryID, &s.DisplayName, &s.KillPoints, &s.PlacementPoints, &s.TotalPoints, &s.Rank, &s.UpdatedAt); err != nil {
			return nil, err
		}
		standings = append(standings, &s)
	}
	return standings, rows.Err()
}
