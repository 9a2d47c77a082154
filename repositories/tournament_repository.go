package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/scrimverse/tournament-engine/models"
)

var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentTitleConflict = errors.New("tournament title conflict for this host")
)

type ListTournamentsFilter struct {
	HostID   *int
	GameName *string
	Status   *models.TournamentStatus
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error
	UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error
	ListForAutoStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	RecordFinalPlacements(ctx context.Context, exec SQLExecutor, placements []*models.FinalPlacement) error
	ListFinalPlacements(ctx context.Context, tournamentID int) ([]*models.FinalPlacement, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, host_id, title, description, game_name, game_mode, event_mode,
	max_participants, entry_fee, prize_pool,
	registration_start, registration_end, start_date, end_date,
	status, current_round, total_rounds, banner_key, created_at, updated_at`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			host_id, title, description, game_name, game_mode, event_mode,
			max_participants, entry_fee, prize_pool,
			registration_start, registration_end, start_date, end_date,
			status, total_rounds, banner_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		t.HostID, t.Title, t.Description, t.GameName, t.GameMode, t.EventMode,
		t.MaxParticipants, t.EntryFee, t.PrizePool,
		t.RegStart, t.RegEnd, t.StartDate, t.EndDate,
		t.Status, t.TotalRounds, t.BannerKey,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrTournamentTitleConflict
		}
		return fmt.Errorf("create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	var t models.Tournament
	err := row.Scan(
		&t.ID, &t.HostID, &t.Title, &t.Description, &t.GameName, &t.GameMode, &t.EventMode,
		&t.MaxParticipants, &t.EntryFee, &t.PrizePool,
		&t.RegStart, &t.RegEnd, &t.StartDate, &t.EndDate,
		&t.Status, &t.CurrentRound, &t.TotalRounds, &t.BannerKey, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := make([]interface{}, 0, 5)
	argPos := 1
	if filter.HostID != nil {
		query += fmt.Sprintf(" AND host_id = $%d", argPos)
		args = append(args, *filter.HostID)
		argPos++
	}
	if filter.GameName != nil {
		query += fmt.Sprintf(" AND game_name = $%d", argPos)
		args = append(args, *filter.GameName)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
		argPos++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, errScan := r.scanTournament(rows)
		if errScan != nil {
			return nil, errScan
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateCurrentRound(ctx context.Context, exec SQLExecutor, id int, round int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET current_round = $1, updated_at = NOW() WHERE id = $2`, round, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tournaments SET banner_key = $1, updated_at = NOW() WHERE id = $2`, bannerKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// ListForAutoStatusUpdate returns tournaments whose status lags behind their
// configured schedule: registration windows that should have opened or closed.
func (r *postgresTournamentRepository) ListForAutoStatusUpdate(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments
		WHERE (status = 'draft' AND registration_start <= $1)
		   OR (status = 'registration_open' AND registration_end <= $1)`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, errScan := r.scanTournament(rows)
		if errScan != nil {
			return nil, errScan
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) RecordFinalPlacements(ctx context.Context, exec SQLExecutor, placements []*models.FinalPlacement) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO final_placements (tournament_id, entry_id, placement, display_name, total_points, kill_points)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tournament_id, entry_id) DO NOTHING
		RETURNING id`
	for _, p := range placements {
		err := executor.QueryRowContext(ctx, query,
			p.TournamentID, p.EntryID, p.Placement, p.DisplayName, p.TotalPoints, p.KillPoints,
		).Scan(&p.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record placement for entry %d: %w", p.EntryID, err)
		}
	}
	return nil
}

func (r *postgresTournamentRepository) ListFinalPlacements(ctx context.Context, tournamentID int) ([]*models.FinalPlacement, error) {
	query := `
		SELECT id, tournament_id, entry_id, placement, display_name, total_points, kill_points
		FROM final_placements WHERE tournament_id = $1 ORDER BY placement ASC`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	placements := make([]*models.FinalPlacement, 0)
	for rows.Next() {
		var p models.FinalPlacement
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.EntryID, &p.Placement, &p.DisplayName, &p.TotalPoints, &p.KillPoints); err != nil {
			return nil, err
		}
		placements = append(placements, &p)
	}
	return placements, rows.Err()
}
