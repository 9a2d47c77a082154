package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/scrimverse/tournament-engine/models"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group, memberIDs []int) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Group, error)
	CountByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GroupStatus) error
	// DeleteByRound removes a round's groups; members, matches and scores go
	// with them via ON DELETE CASCADE. Used by round abort only.
	DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts the group and its membership rows. Seeding order is kept in
// the seed_order column so member listings are stable.
func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group, memberIDs []int) error {
	executor := r.getExecutor(exec)
	err := executor.QueryRowContext(ctx,
		`INSERT INTO groups (round_id, name, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
		group.RoundID, group.Name, group.Status,
	).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return fmt.Errorf("create group %q: %w", group.Name, err)
	}

	for i, entryID := range memberIDs {
		_, err := executor.ExecContext(ctx,
			`INSERT INTO group_members (group_id, entry_id, seed_order) VALUES ($1, $2, $3)`,
			group.ID, entryID, i)
		if err != nil {
			return fmt.Errorf("add entry %d to group %d: %w", entryID, group.ID, err)
		}
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Group, error) {
	executor := r.getExecutor(exec)
	var g models.Group
	err := executor.QueryRowContext(ctx,
		`SELECT id, round_id, name, status, created_at FROM groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.RoundID, &g.Name, &g.Status, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if err := r.loadMembers(ctx, executor, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *postgresGroupRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Group, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT id, round_id, name, status, created_at FROM groups WHERE round_id = $1 ORDER BY id ASC`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.RoundID, &g.Name, &g.Status, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if err := r.loadMembers(ctx, executor, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *postgresGroupRepository) loadMembers(ctx context.Context, executor SQLExecutor, g *models.Group) error {
	rows, err := executor.QueryContext(ctx, `
		SELECT e.id, e.tournament_id, e.team_id, e.display_name, e.eliminated, e.eliminated_in_round, e.created_at
		FROM group_members gm
		JOIN team_entries e ON e.id = gm.entry_id
		WHERE gm.group_id = $1
		ORDER BY gm.seed_order ASC`, g.ID)
	if err != nil {
		return fmt.Errorf("load members for group %d: %w", g.ID, err)
	}
	defer rows.Close()

	g.Members = make([]*models.TeamEntry, 0)
	for rows.Next() {
		var e models.TeamEntry
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.TeamID, &e.DisplayName, &e.Eliminated, &e.EliminatedInRound, &e.CreatedAt); err != nil {
			return err
		}
		g.Members = append(g.Members, &e)
	}
	return rows.Err()
}

func (r *postgresGroupRepository) CountByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE round_id = $1`, roundID).Scan(&count)
	return count, err
}

func (r *postgresGroupRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.GroupStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE groups SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, roundID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM groups WHERE round_id = $1`, roundID)
	return err
}
