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
	ErrEntryNotFound = errors.New("team entry not found")
	ErrEntryConflict = errors.New("team is already entered in this tournament")
)

type EntryRepository interface {
	Create(ctx context.Context, entry *models.TeamEntry) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamEntry, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.TeamEntry, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.TeamEntry, error)
	MarkEliminated(ctx context.Context, exec SQLExecutor, entryIDs []int, roundNumber int) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntryRepository) Create(ctx context.Context, e *models.TeamEntry) error {
	query := `
		INSERT INTO team_entries (tournament_id, team_id, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, e.TournamentID, e.TeamID, e.DisplayName).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrEntryConflict
		}
		return fmt.Errorf("create team entry: %w", err)
	}
	return nil
}

func (r *postgresEntryRepository) scanEntry(row interface{ Scan(...interface{}) error }) (*models.TeamEntry, error) {
	var e models.TeamEntry
	err := row.Scan(&e.ID, &e.TournamentID, &e.TeamID, &e.DisplayName, &e.Eliminated, &e.EliminatedInRound, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

const entryColumns = `id, tournament_id, team_id, display_name, eliminated, eliminated_in_round, created_at`

func (r *postgresEntryRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TeamEntry, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + entryColumns + ` FROM team_entries WHERE id = $1`
	return r.scanEntry(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresEntryRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, activeOnly bool) ([]*models.TeamEntry, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + entryColumns + ` FROM team_entries WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND eliminated = FALSE`
	}
	query += ` ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresEntryRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.TeamEntry, error) {
	if len(ids) == 0 {
		return []*models.TeamEntry{}, nil
	}
	executor := r.getExecutor(exec)
	query := `SELECT ` + entryColumns + ` FROM team_entries WHERE id = ANY($1) ORDER BY id ASC`
	rows, err := executor.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *postgresEntryRepository) collect(rows *sql.Rows) ([]*models.TeamEntry, error) {
	entries := make([]*models.TeamEntry, 0)
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresEntryRepository) MarkEliminated(ctx context.Context, exec SQLExecutor, entryIDs []int, roundNumber int) error {
	if len(entryIDs) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`UPDATE team_entries SET eliminated = TRUE, eliminated_in_round = $1 WHERE id = ANY($2)`,
		roundNumber, pq.Array(entryIDs))
	return err
}
