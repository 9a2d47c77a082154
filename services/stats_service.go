package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/repositories"
)

type StatsService interface {
	// ApplyRoundOutcome folds a closed round's overall standings into the
	// per-game career statistics of every team that played it. Applying the
	// same round twice returns repositories.ErrRoundAlreadyApplied and
	// changes nothing.
	ApplyRoundOutcome(ctx context.Context, tournament *models.Tournament, round *models.Round, overall []*models.GroupStanding) error

	Leaderboard(ctx context.Context, gameName string, limit int) ([]*models.TeamStatistics, error)
	TeamStatistics(ctx context.Context, teamID int, gameName string) (*models.TeamStatistics, error)
}

type statsService struct {
	db        *sql.DB
	statsRepo repositories.StatsRepository
	entryRepo repositories.EntryRepository
	logger    *slog.Logger
}

func NewStatsService(db *sql.DB, statsRepo repositories.StatsRepository, entryRepo repositories.EntryRepository, logger *slog.Logger) StatsService {
	return &statsService{db: db, statsRepo: statsRepo, entryRepo: entryRepo, logger: logger}
}

func (s *statsService) ApplyRoundOutcome(ctx context.Context, tournament *models.Tournament, round *models.Round, overall []*models.GroupStanding) error {
	if len(overall) == 0 {
		return nil
	}

	entryIDs := make([]int, 0, len(overall))
	for _, st := range overall {
		entryIDs = append(entryIDs, st.EntryID)
	}
	entries, err := s.entryRepo.ListByIDs(ctx, nil, entryIDs)
	if err != nil {
		return err
	}
	teamByEntry := make(map[int]int, len(entries))
	for _, e := range entries {
		teamByEntry[e.ID] = e.TeamID
	}

	finalRound := round.Number >= tournament.TotalRounds

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	// The processed marker is the idempotency guard: the insert hits a
	// unique constraint on the second attempt and the whole transaction,
	// deltas included, rolls back.
	if txErr = s.statsRepo.MarkRoundProcessed(ctx, tx, round.ID); txErr != nil {
		if errors.Is(txErr, repositories.ErrRoundAlreadyApplied) {
			return repositories.ErrRoundAlreadyApplied
		}
		return txErr
	}

	for _, st := range overall {
		teamID, ok := teamByEntry[st.EntryID]
		if !ok {
			txErr = fmt.Errorf("%w: entry %d has no team", ErrUnknownParticipant, st.EntryID)
			return txErr
		}
		delta := models.StatsDelta{
			TeamID:          teamID,
			GameName:        tournament.GameName,
			KillPoints:      st.KillPoints,
			PlacementPoints: st.PlacementPoints,
		}
		if finalRound && st.Rank == 1 {
			switch tournament.EventMode {
			case models.EventModeScrim:
				delta.ScrimWins = 1
			default:
				delta.TournamentWins = 1
			}
		}
		if _, txErr = s.statsRepo.GetOrCreate(ctx, tx, teamID, tournament.GameName); txErr != nil {
			return txErr
		}
		if txErr = s.statsRepo.ApplyDelta(ctx, tx, delta); txErr != nil {
			return txErr
		}
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("commit stats: %w", txErr)
	}
	s.logger.Info("round outcome applied to statistics",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("round", round.Number),
		slog.Int("teams", len(overall)),
		slog.Bool("final", finalRound))
	return nil
}

func (s *statsService) Leaderboard(ctx context.Context, gameName string, limit int) ([]*models.TeamStatistics, error) {
	if gameName == "" {
		return nil, fmt.Errorf("%w: game name is required", ErrValidationFailed)
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.statsRepo.Leaderboard(ctx, gameName, limit)
}

func (s *statsService) TeamStatistics(ctx context.Context, teamID int, gameName string) (*models.TeamStatistics, error) {
	stats, err := s.statsRepo.GetOrCreate(ctx, nil, teamID, gameName)
	if err != nil {
		if errors.Is(err, repositories.ErrStatsNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stats, nil
}
