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
	ErrRoundNotFound = errors.New("round not found")
	ErrRoundConflict = errors.New("round number already configured for this tournament")
)

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error)
	GetByTournamentAndNumber(ctx context.Context, exec SQLExecutor, tournamentID, number int) (*models.Round, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error
	MarkClosed(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundColumns = `id, tournament_id, number, strategy, capacity, match_count, qualification, status, created_at, closed_at`

func (r *postgresRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rounds (tournament_id, number, strategy, capacity, match_count, qualification, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := executor.QueryRowContext(ctx, query,
		round.TournamentID, round.Number, round.Strategy, round.Capacity,
		round.MatchCount, round.Qualification, round.Status,
	).Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrRoundConflict
		}
		return fmt.Errorf("create round: %w", err)
	}
	return nil
}

func (r *postgresRoundRepository) scanRound(row interface{ Scan(...interface{}) error }) (*models.Round, error) {
	var rd models.Round
	err := row.Scan(&rd.ID, &rd.TournamentID, &rd.Number, &rd.Strategy, &rd.Capacity,
		&rd.MatchCount, &rd.Qualification, &rd.Status, &rd.CreatedAt, &rd.ClosedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return &rd, nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	return r.scanRound(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) GetByTournamentAndNumber(ctx context.Context, exec SQLExecutor, tournamentID, number int) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 AND number = $2`
	return r.scanRound(executor.QueryRowContext(ctx, query, tournamentID, number))
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + roundColumns + ` FROM rounds WHERE tournament_id = $1 ORDER BY number ASC`
	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		rd, errScan := r.scanRound(rows)
		if errScan != nil {
			return nil, errScan
		}
		rounds = append(rounds, rd)
	}
	return rounds, rows.Err()
}

func (r *postgresRoundRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.RoundStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE rounds SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *postgresRoundRepository) MarkClosed(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE rounds SET status = 'closed', closed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}
