package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/scrimverse/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	CreateForGroup(ctx context.Context, exec SQLExecutor, groupID, matchCount int) ([]*models.Match, error)
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	GetByGroupAndNumber(ctx context.Context, exec SQLExecutor, groupID, number int) (*models.Match, error)
	ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error)
	ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPassword *string) error
	MarkStarted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	MarkEnded(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
	CountUnfinalizedByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error)
	CountFinalizedByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, group_id, number, status, room_id, room_password, started_at, ended_at`

// CreateForGroup seeds a freshly formed group with empty scheduled matches
// numbered 1..matchCount.
func (r *postgresMatchRepository) CreateForGroup(ctx context.Context, exec SQLExecutor, groupID, matchCount int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	matches := make([]*models.Match, 0, matchCount)
	for number := 1; number <= matchCount; number++ {
		m := &models.Match{GroupID: groupID, Number: number, Status: models.MatchScheduled}
		err := executor.QueryRowContext(ctx,
			`INSERT INTO matches (group_id, number, status) VALUES ($1, $2, $3) RETURNING id`,
			m.GroupID, m.Number, m.Status,
		).Scan(&m.ID)
		if err != nil {
			return nil, fmt.Errorf("create match %d for group %d: %w", number, groupID, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.GroupID, &m.Number, &m.Status, &m.RoomID, &m.RoomPassword, &m.StartedAt, &m.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	return r.scanMatch(executor.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
}

func (r *postgresMatchRepository) GetByGroupAndNumber(ctx context.Context, exec SQLExecutor, groupID, number int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	return r.scanMatch(executor.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE group_id = $1 AND number = $2`, groupID, number))
}

func (r *postgresMatchRepository) ListByGroup(ctx context.Context, exec SQLExecutor, groupID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE group_id = $1 ORDER BY number ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, roundID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	rows, err := executor.QueryContext(ctx, `
		SELECT m.id, m.group_id, m.number, m.status, m.room_id, m.room_password, m.started_at, m.ended_at
		FROM matches m
		JOIN groups g ON g.id = m.group_id
		WHERE g.round_id = $1
		ORDER BY m.group_id ASC, m.number ASC`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresMatchRepository) collect(rows *sql.Rows) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateRoom(ctx context.Context, exec SQLExecutor, id int, roomID, roomPassword *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET room_id = COALESCE($1, room_id), room_password = COALESCE($2, room_password) WHERE id = $3`,
		roomID, roomPassword, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkStarted(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET status = 'live', started_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) MarkEnded(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE matches SET ended_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountUnfinalizedByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM matches m
		JOIN groups g ON g.id = m.group_id
		WHERE g.round_id = $1 AND m.status <> 'finalized'`, roundID).Scan(&count)
	return count, err
}

func (r *postgresMatchRepository) CountFinalizedByRound(ctx context.Context, exec SQLExecutor, roundID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM matches m
		JOIN groups g ON g.id = m.group_id
		WHERE g.round_id = $1 AND m.status = 'finalized'`, roundID).Scan(&count)
	return count, err
}
