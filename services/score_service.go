package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/notify"
	"github.com/scrimverse/tournament-engine/repositories"
)

// GroupSchedule is the read-only match schedule projection for dashboards.
type GroupSchedule struct {
	Group   *models.Group   `json:"group"`
	Matches []*models.Match `json:"matches"`
}

// GroupStandingsView pairs a group with its current cached standings.
type GroupStandingsView struct {
	Group     *models.Group           `json:"group"`
	Standings []*models.GroupStanding `json:"standings"`
}

type ScoreService interface {
	SetMatchRoom(ctx context.Context, hostID, matchID int, roomID, roomPassword *string) (*models.Match, error)
	StartMatch(ctx context.Context, hostID, matchID int) (*models.Match, error)
	SubmitScore(ctx context.Context, hostID, matchID, entryID, killPoints, placementPoints int) (*models.MatchScoreEntry, error)
	FinalizeMatch(ctx context.Context, hostID, matchID int) ([]*models.GroupStanding, error)
	ReopenMatch(ctx context.Context, hostID, matchID int) error

	GetGroupStandings(ctx context.Context, roundID int) ([]*GroupStandingsView, error)
	GetMatchSchedule(ctx context.Context, roundID int) ([]*GroupSchedule, error)
}

type scoreService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	groupRepo      repositories.GroupRepository
	matchRepo      repositories.MatchRepository
	scoreRepo      repositories.ScoreRepository
	standingRepo   repositories.StandingRepository
	notifier       notify.Notifier
	locks          *RoundLocks
	logger         *slog.Logger
}

func NewScoreService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
	standingRepo repositories.StandingRepository,
	notifier notify.Notifier,
	locks *RoundLocks,
	logger *slog.Logger,
) ScoreService {
	return &scoreService{
		db:             db,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		groupRepo:      groupRepo,
		matchRepo:      matchRepo,
		scoreRepo:      scoreRepo,
		standingRepo:   standingRepo,
		notifier:       notifier,
		locks:          locks,
		logger:         logger,
	}
}

// matchContext resolves a match up to its owning tournament and verifies the
// caller hosts it and the tournament is still live.
type matchContext struct {
	tournament *models.Tournament
	round      *models.Round
	group      *models.Group
	match      *models.Match
}

func (s *scoreService) resolveMatch(ctx context.Context, hostID, matchID int) (*matchContext, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	group, err := s.groupRepo.GetByID(ctx, nil, match.GroupID)
	if err != nil {
		return nil, err
	}
	round, err := s.roundRepo.GetByID(ctx, nil, group.RoundID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, round.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.HostID != hostID {
		return nil, ErrHostOnly
	}
	if tournament.Status.Terminal() {
		return nil, ErrTournamentClosed
	}
	return &matchContext{tournament: tournament, round: round, group: group, match: match}, nil
}

// refreshLocked reloads the state the status guards depend on. resolveMatch
// runs before the round lock is taken, so its snapshot can predate a racing
// finalize, reopen or round close; guards must only trust state read while
// the lock is held.
func (s *scoreService) refreshLocked(ctx context.Context, mc *matchContext) error {
	match, err := s.matchRepo.GetByID(ctx, nil, mc.match.ID)
	if err != nil {
		return err
	}
	group, err := s.groupRepo.GetByID(ctx, nil, mc.group.ID)
	if err != nil {
		return err
	}
	round, err := s.roundRepo.GetByID(ctx, nil, mc.round.ID)
	if err != nil {
		return err
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, mc.tournament.ID)
	if err != nil {
		return err
	}
	if tournament.Status.Terminal() {
		return ErrTournamentClosed
	}
	mc.match, mc.group, mc.round, mc.tournament = match, group, round, tournament
	return nil
}

func (s *scoreService) SetMatchRoom(ctx context.Context, hostID, matchID int, roomID, roomPassword *string) (*models.Match, error) {
	mc, err := s.resolveMatch(ctx, hostID, matchID)
	if err != nil {
		return nil, err
	}
	if !mc.match.CanEditRoom() {
		return nil, fmt.Errorf("%w: room details are locked once the match starts", ErrValidationFailed)
	}
	if err := s.matchRepo.UpdateRoom(ctx, nil, matchID, roomID, roomPassword); err != nil {
		return nil, err
	}
	return s.matchRepo.GetByID(ctx, nil, matchID)
}

// StartMatch flips a match live. Matches within a group run sequentially:
// match N only starts after match N-1 is finalized.
func (s *scoreService) StartMatch(ctx context.Context, hostID, matchID int) (*models.Match, error) {
	mc, err := s.resolveMatch(ctx, hostID, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(mc.round.ID)
	defer unlock()
	if err := s.refreshLocked(ctx, mc); err != nil {
		return nil, err
	}

	if mc.match.Status != models.MatchScheduled {
		return nil, fmt.Errorf("%w: match %d is %s", ErrValidationFailed, mc.match.Number, mc.match.Status)
	}
	if mc.match.Number > 1 {
		previous, err := s.matchRepo.GetByGroupAndNumber(ctx, nil, mc.group.ID, mc.match.Number-1)
		if err != nil {
			return nil, err
		}
		if previous.Status != models.MatchFinalized {
			return nil, ErrSequentialMatchOrder
		}
	}

	if err := s.matchRepo.MarkStarted(ctx, nil, matchID, time.Now()); err != nil {
		return nil, err
	}
	if mc.group.Status == models.GroupWaiting {
		if err := s.groupRepo.UpdateStatus(ctx, nil, mc.group.ID, models.GroupOngoing); err != nil {
			return nil, err
		}
	}
	return s.matchRepo.GetByID(ctx, nil, matchID)
}

// SubmitScore records one team's result for one match. Resubmitting before
// finalization overwrites the previous value; a finalized match rejects the
// write until an explicit reopen.
func (s *scoreService) SubmitScore(ctx context.Context, hostID, matchID, entryID, killPoints, placementPoints int) (*models.MatchScoreEntry, error) {
	if killPoints < 0 || placementPoints < 0 {
		return nil, fmt.Errorf("%w: points must be non-negative", ErrValidationFailed)
	}

	mc, err := s.resolveMatch(ctx, hostID, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(mc.round.ID)
	defer unlock()
	if err := s.refreshLocked(ctx, mc); err != nil {
		return nil, err
	}

	if mc.match.Status == models.MatchFinalized {
		return nil, ErrMatchFinalized
	}
	if !mc.group.HasMember(entryID) {
		return nil, ErrUnknownParticipant
	}

	score := &models.MatchScoreEntry{
		MatchID:         matchID,
		EntryID:         entryID,
		KillPoints:      killPoints,
		PlacementPoints: placementPoints,
		TotalPoints:     killPoints + placementPoints,
	}
	if err := s.scoreRepo.Upsert(ctx, nil, score); err != nil {
		return nil, err
	}
	if mc.match.Status != models.MatchScored {
		if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, models.MatchScored); err != nil {
			return nil, err
		}
	}
	return score, nil
}

// FinalizeMatch freezes a match's scores and recomputes the group standing
// cache. The recompute is a pure aggregation over all finalized scores in the
// group, so concurrent finalizes of different matches cannot corrupt it.
func (s *scoreService) FinalizeMatch(ctx context.Context, hostID, matchID int) ([]*models.GroupStanding, error) {
	mc, err := s.resolveMatch(ctx, hostID, matchID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(mc.round.ID)
	defer unlock()
	if err := s.refreshLocked(ctx, mc); err != nil {
		return nil, err
	}

	if mc.match.Status == models.MatchFinalized {
		return nil, ErrMatchFinalized
	}

	scored, err := s.scoreRepo.CountByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	if scored != len(mc.group.Members) {
		return nil, fmt.Errorf("%w: %d of %d teams scored", ErrIncompleteScores, scored, len(mc.group.Members))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchFinalized); txErr != nil {
		return nil, txErr
	}
	if txErr = s.matchRepo.MarkEnded(ctx, tx, matchID, time.Now()); txErr != nil {
		return nil, txErr
	}

	standings, txErr2 := s.recomputeStandings(ctx, tx, mc.group)
	if txErr2 != nil {
		txErr = txErr2
		return nil, txErr
	}

	groupDone, txErr2 := s.allMatchesFinalized(ctx, tx, mc.group.ID)
	if txErr2 != nil {
		txErr = txErr2
		return nil, txErr
	}
	if groupDone {
		if txErr = s.groupRepo.UpdateStatus(ctx, tx, mc.group.ID, models.GroupCompleted); txErr != nil {
			return nil, txErr
		}
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("commit finalize: %w", txErr)
	}

	s.logger.Info("match finalized",
		slog.Int("match_id", matchID),
		slog.Int("group_id", mc.group.ID),
		slog.Bool("group_completed", groupDone))
	if groupDone {
		s.notifier.ScoresFinalized(mc.tournament.ID, mc.group.ID)
	}
	return standings, nil
}

// ReopenMatch unfreezes a finalized match so a score can be corrected.
// Allowed only while the owning round is the tournament's current, unfinished
// round; closed rounds are immutable history.
func (s *scoreService) ReopenMatch(ctx context.Context, hostID, matchID int) error {
	mc, err := s.resolveMatch(ctx, hostID, matchID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(mc.round.ID)
	defer unlock()
	if err := s.refreshLocked(ctx, mc); err != nil {
		return err
	}

	if mc.match.Status != models.MatchFinalized {
		return ErrMatchNotFinalized
	}
	if mc.round.Status == models.RoundClosed || mc.round.Number != mc.tournament.CurrentRound {
		return fmt.Errorf("%w: only matches of the current round can be reopened", ErrForbiddenOperation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reopen transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchScored); txErr != nil {
		return txErr
	}
	if _, txErr = s.recomputeStandings(ctx, tx, mc.group); txErr != nil {
		return txErr
	}
	if mc.group.Status == models.GroupCompleted {
		if txErr = s.groupRepo.UpdateStatus(ctx, tx, mc.group.ID, models.GroupOngoing); txErr != nil {
			return txErr
		}
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("commit reopen: %w", txErr)
	}
	s.logger.Info("match reopened", slog.Int("match_id", matchID), slog.Int("group_id", mc.group.ID))
	return nil
}

// recomputeStandings rebuilds the cached standings for a group from its
// finalized score log.
func (s *scoreService) recomputeStandings(ctx context.Context, exec repositories.SQLExecutor, group *models.Group) ([]*models.GroupStanding, error) {
	scores, err := s.scoreRepo.ListFinalizedByGroup(ctx, exec, group.ID)
	if err != nil {
		return nil, err
	}
	standings := models.ComputeStandings(group, scores)
	if err := s.standingRepo.ReplaceForGroup(ctx, exec, group.ID, standings); err != nil {
		return nil, err
	}
	return standings, nil
}

func (s *scoreService) allMatchesFinalized(ctx context.Context, exec repositories.SQLExecutor, groupID int) (bool, error) {
	matches, err := s.matchRepo.ListByGroup(ctx, exec, groupID)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if m.Status != models.MatchFinalized {
			return false, nil
		}
	}
	return true, nil
}

func (s *scoreService) GetGroupStandings(ctx context.Context, roundID int) ([]*GroupStandingsView, error) {
	groups, err := s.groupRepo.ListByRound(ctx, nil, roundID)
	if err != nil {
		return nil, err
	}
	views := make([]*GroupStandingsView, 0, len(groups))
	for _, group := range groups {
		standings, err := s.standingRepo.ListByGroup(ctx, nil, group.ID)
		if err != nil {
			return nil, err
		}
		if len(standings) == 0 {
			// Nothing finalized yet: show every member with zero points.
			standings = models.ComputeStandings(group, nil)
		}
		views = append(views, &GroupStandingsView{Group: group, Standings: standings})
	}
	return views, nil
}

func (s *scoreService) GetMatchSchedule(ctx context.Context, roundID int) ([]*GroupSchedule, error) {
	groups, err := s.groupRepo.ListByRound(ctx, nil, roundID)
	if err != nil {
		return nil, err
	}
	schedule := make([]*GroupSchedule, 0, len(groups))
	for _, group := range groups {
		matches, err := s.matchRepo.ListByGroup(ctx, nil, group.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if m.Scores, err = s.scoreRepo.ListByMatch(ctx, nil, m.ID); err != nil {
				return nil, err
			}
		}
		schedule = append(schedule, &GroupSchedule{Group: group, Matches: matches})
	}
	return schedule, nil
}
