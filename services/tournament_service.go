package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scrimverse/tournament-engine/formation"
	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/notify"
	"github.com/scrimverse/tournament-engine/repositories"
	"github.com/scrimverse/tournament-engine/storage"
)

// RoundConfig is the validated, enumerated round configuration. Malformed
// configuration is rejected here, at the boundary, not deep inside scoring.
type RoundConfig struct {
	Strategy      models.FormationStrategy `json:"strategy"`
	Capacity      int                      `json:"capacity"`
	MatchCount    int                      `json:"match_count"`
	Qualification models.QualificationRule `json:"qualification"`
}

// CloseRoundResult is what CloseRound hands back to the host: the advancing
// entries for an intermediate round, or the final placements.
type CloseRoundResult struct {
	RoundNumber     int                      `json:"round_number"`
	IsFinalRound    bool                     `json:"is_final_round"`
	Advancing       []*models.TeamEntry      `json:"advancing,omitempty"`
	Eliminated      []*models.TeamEntry      `json:"eliminated,omitempty"`
	FinalPlacements []*models.FinalPlacement `json:"final_placements,omitempty"`
	Standings       []*models.GroupStanding  `json:"standings,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, tournament *models.Tournament) error
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error)

	OpenRegistration(ctx context.Context, hostID, tournamentID int) error
	CloseRegistration(ctx context.Context, hostID, tournamentID int) error
	RegisterEntry(ctx context.Context, tournamentID, teamID int, displayName string) (*models.TeamEntry, error)
	ListEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error)
	ConfigureRound(ctx context.Context, hostID, tournamentID int, cfg RoundConfig) (*models.Round, error)
	StartRound(ctx context.Context, hostID, tournamentID, roundNumber int) (*models.Round, error)
	CloseRound(ctx context.Context, hostID, tournamentID, roundNumber int) (*CloseRoundResult, error)
	AbortRound(ctx context.Context, hostID, tournamentID, roundNumber int) error
	CancelTournament(ctx context.Context, hostID, tournamentID int) error

	FinalPlacements(ctx context.Context, tournamentID int) ([]*models.FinalPlacement, error)

	UploadBanner(ctx context.Context, hostID, tournamentID int, contentType string, banner io.Reader) (string, error)
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	groupRepo      repositories.GroupRepository
	matchRepo      repositories.MatchRepository
	entryRepo      repositories.EntryRepository
	entries        EntryProvider
	qualification  QualificationService
	stats          StatsService
	notifier       notify.Notifier
	uploader       storage.FileUploader
	locks          *RoundLocks
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	entryRepo repositories.EntryRepository,
	entries EntryProvider,
	qualification QualificationService,
	stats StatsService,
	notifier notify.Notifier,
	uploader storage.FileUploader,
	locks *RoundLocks,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		groupRepo:      groupRepo,
		matchRepo:      matchRepo,
		entryRepo:      entryRepo,
		entries:        entries,
		qualification:  qualification,
		stats:          stats,
		notifier:       notifier,
		uploader:       uploader,
		locks:          locks,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, t *models.Tournament) error {
	if t.Title == "" || t.GameName == "" {
		return fmt.Errorf("%w: title and game name are required", ErrValidationFailed)
	}
	if t.MaxParticipants <= 0 {
		return fmt.Errorf("%w: max participants must be positive", ErrValidationFailed)
	}
	if !t.RegEnd.After(t.RegStart) {
		return fmt.Errorf("%w: registration end must be after start", ErrValidationFailed)
	}
	if t.EventMode == "" {
		t.EventMode = models.EventModeTournament
	}
	if t.EventMode == models.EventModeScrim {
		// Scrims are single-round events.
		t.TotalRounds = 1
	}
	if t.TotalRounds <= 0 {
		return fmt.Errorf("%w: total rounds must be positive", ErrValidationFailed)
	}
	t.Status = models.StatusDraft
	return s.tournamentRepo.Create(ctx, t)
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rounds, err := s.roundRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	t.Rounds = rounds
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// requireHost loads a tournament and checks ownership and liveness.
func (s *tournamentService) requireHost(ctx context.Context, hostID, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if t.HostID != hostID {
		return nil, ErrHostOnly
	}
	return t, nil
}

func (s *tournamentService) transition(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, to models.TournamentStatus) error {
	if t.Status.Terminal() {
		return ErrTournamentClosed
	}
	if !models.CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, to)
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, to); err != nil {
		return err
	}
	t.Status = to
	return nil
}

func (s *tournamentService) OpenRegistration(ctx context.Context, hostID, tournamentID int) error {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return err
	}
	return s.transition(ctx, nil, t, models.StatusRegistrationOpen)
}

func (s *tournamentService) CloseRegistration(ctx context.Context, hostID, tournamentID int) error {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return err
	}
	return s.transition(ctx, nil, t, models.StatusRegistrationClosed)
}

// RegisterEntry adds a team to an open registration. Display names must be
// unique per tournament; the repository surfaces the constraint violation.
func (s *tournamentService) RegisterEntry(ctx context.Context, tournamentID, teamID int, displayName string) (*models.TeamEntry, error) {
	if displayName == "" {
		return nil, fmt.Errorf("%w: display name is required", ErrValidationFailed)
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if t.Status != models.StatusRegistrationOpen {
		return nil, fmt.Errorf("%w: registration is not open", ErrForbiddenOperation)
	}
	existing, err := s.entryRepo.ListByTournament(ctx, nil, tournamentID, false)
	if err != nil {
		return nil, err
	}
	if len(existing) >= t.MaxParticipants {
		return nil, fmt.Errorf("%w: tournament is full", ErrForbiddenOperation)
	}
	entry := &models.TeamEntry{
		TournamentID: tournamentID,
		TeamID:       teamID,
		DisplayName:  displayName,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *tournamentService) ListEntries(ctx context.Context, tournamentID int) ([]*models.TeamEntry, error) {
	return s.entryRepo.ListByTournament(ctx, nil, tournamentID, false)
}

func validateRoundConfig(cfg RoundConfig) error {
	if !cfg.Strategy.Valid() {
		return ErrInvalidStrategy
	}
	if !cfg.Qualification.Kind.Valid() {
		return ErrInvalidQualification
	}
	if cfg.MatchCount < 1 || cfg.MatchCount > 6 {
		return ErrInvalidMatchCount
	}
	switch cfg.Strategy {
	case models.FormationHeadToHead:
		if cfg.Capacity != 2 {
			return fmt.Errorf("%w: head-to-head capacity is always 2", ErrValidationFailed)
		}
		if cfg.Qualification.Kind == models.QualifyWinnerOfTopNGroups && cfg.Qualification.Count < 1 {
			return ErrInvalidQualification
		}
	case models.FormationMultiTeam:
		if cfg.Capacity < 2 || cfg.Capacity > formation.MaxGroupCapacity {
			return formation.ErrInvalidCapacity
		}
		if cfg.Qualification.Kind == models.QualifyWinnerOfTopNGroups {
			return fmt.Errorf("%w: winner_of_top_n_groups requires head_to_head formation", ErrInvalidQualification)
		}
	}
	if cfg.Qualification.Kind == models.QualifyTopKPerGroup {
		if cfg.Qualification.Count < 1 || cfg.Qualification.Count > cfg.Capacity {
			return ErrInvalidQualifierCount
		}
	}
	return nil
}

func (s *tournamentService) ConfigureRound(ctx context.Context, hostID, tournamentID int, cfg RoundConfig) (*models.Round, error) {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrTournamentClosed
	}
	if t.Status != models.StatusRegistrationClosed && t.Status != models.StatusRoundClosed {
		return nil, fmt.Errorf("%w: cannot configure a round while %s", ErrIllegalTransition, t.Status)
	}
	if err := validateRoundConfig(cfg); err != nil {
		return nil, err
	}

	number := t.CurrentRound + 1
	if number > t.TotalRounds {
		return nil, fmt.Errorf("%w: tournament has %d rounds", ErrInvalidRoundNumber, t.TotalRounds)
	}

	round := &models.Round{
		TournamentID:  tournamentID,
		Number:        number,
		Strategy:      cfg.Strategy,
		Capacity:      cfg.Capacity,
		MatchCount:    cfg.MatchCount,
		Qualification: cfg.Qualification,
		Status:        models.RoundConfigured,
	}
	if err := s.roundRepo.Create(ctx, nil, round); err != nil {
		if errors.Is(err, repositories.ErrRoundConflict) {
			return nil, ErrRoundAlreadyFormed
		}
		return nil, err
	}
	s.logger.Info("round configured",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", number),
		slog.String("strategy", string(cfg.Strategy)))
	return round, nil
}

// roundEntries resolves the entry list for a starting round: the finalized
// registration list for round one, the survivors of the previous round after.
func (s *tournamentService) roundEntries(ctx context.Context, t *models.Tournament, roundNumber int) ([]*models.TeamEntry, error) {
	if roundNumber == 1 {
		return s.entries.FinalizedEntries(ctx, t.ID)
	}
	return s.entryRepo.ListByTournament(ctx, nil, t.ID, true)
}

func (s *tournamentService) StartRound(ctx context.Context, hostID, tournamentID, roundNumber int) (*models.Round, error) {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrTournamentClosed
	}
	if !models.CanTransition(t.Status, models.StatusRoundInProgress) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.Status, models.StatusRoundInProgress)
	}

	round, err := s.roundRepo.GetByTournamentAndNumber(ctx, nil, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlock := s.locks.lock(round.ID)
	defer unlock()

	if round.Status != models.RoundConfigured {
		return nil, ErrRoundAlreadyFormed
	}
	existing, err := s.groupRepo.CountByRound(ctx, nil, round.ID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrRoundAlreadyFormed
	}

	entries, err := s.roundEntries(ctx, t, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("resolve entries for round %d: %w", roundNumber, err)
	}

	former, err := formation.ForStrategy(round.Strategy)
	if err != nil {
		return nil, err
	}
	formed, err := former.FormGroups(ctx, formation.FormGroupsParams{Round: round, Entries: entries})
	if err != nil {
		// Formation failure leaves the tournament in registration_closed or
		// round_closed; nothing has been persisted yet.
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin round start transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	round.Groups = make([]*models.Group, 0, len(formed))
	for _, fg := range formed {
		group := &models.Group{RoundID: round.ID, Name: fg.Name, Status: models.GroupWaiting}
		memberIDs := make([]int, 0, len(fg.Entries))
		for _, e := range fg.Entries {
			memberIDs = append(memberIDs, e.ID)
		}
		if txErr = s.groupRepo.Create(ctx, tx, group, memberIDs); txErr != nil {
			return nil, txErr
		}
		group.Members = fg.Entries
		if group.Matches, txErr = s.matchRepo.CreateForGroup(ctx, tx, group.ID, round.MatchCount); txErr != nil {
			return nil, txErr
		}
		round.Groups = append(round.Groups, group)
	}

	if txErr = s.roundRepo.UpdateStatus(ctx, tx, round.ID, models.RoundInProgress); txErr != nil {
		return nil, txErr
	}
	if txErr = s.tournamentRepo.UpdateCurrentRound(ctx, tx, t.ID, roundNumber); txErr != nil {
		return nil, txErr
	}
	if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, models.StatusRoundInProgress); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("commit round start: %w", txErr)
	}

	round.Status = models.RoundInProgress
	s.logger.Info("round started",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", roundNumber),
		slog.Int("groups", len(round.Groups)),
		slog.Int("entries", len(entries)))

	// Fire-and-forget; delivery failure never rolls back the transition.
	s.notifier.RoundStarted(t.ID, roundNumber, len(round.Groups))
	return round, nil
}

func (s *tournamentService) CloseRound(ctx context.Context, hostID, tournamentID, roundNumber int) (*CloseRoundResult, error) {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrTournamentClosed
	}
	if t.Status != models.StatusRoundInProgress || t.CurrentRound != roundNumber {
		return nil, fmt.Errorf("%w: round %d is not in progress", ErrIllegalTransition, roundNumber)
	}

	round, err := s.roundRepo.GetByTournamentAndNumber(ctx, nil, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	unlock := s.locks.lock(round.ID)
	defer unlock()

	// Re-check under the lock: a racing close or abort may have moved the
	// tournament on while this caller waited.
	if t, err = s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, ErrTournamentClosed
	}
	if t.Status != models.StatusRoundInProgress || t.CurrentRound != roundNumber {
		return nil, fmt.Errorf("%w: round %d is not in progress", ErrIllegalTransition, roundNumber)
	}

	selection, err := s.qualification.SelectQualifiers(ctx, round)
	if err != nil {
		return nil, err
	}

	isFinal := roundNumber == t.TotalRounds
	result := &CloseRoundResult{
		RoundNumber:  roundNumber,
		IsFinalRound: isFinal,
		Standings:    selection.Overall,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin round close transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if isFinal {
		placements := make([]*models.FinalPlacement, 0, len(selection.Overall))
		for i, st := range selection.Overall {
			placements = append(placements, &models.FinalPlacement{
				TournamentID: t.ID,
				EntryID:      st.EntryID,
				Placement:    i + 1,
				DisplayName:  st.DisplayName,
				TotalPoints:  st.TotalPoints,
				KillPoints:   st.KillPoints,
			})
		}
		if txErr = s.tournamentRepo.RecordFinalPlacements(ctx, tx, placements); txErr != nil {
			return nil, txErr
		}
		if txErr = s.roundRepo.MarkClosed(ctx, tx, round.ID); txErr != nil {
			return nil, txErr
		}
		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, models.StatusCompleted); txErr != nil {
			return nil, txErr
		}
		result.FinalPlacements = placements
	} else {
		eliminatedIDs := make([]int, 0, len(selection.Eliminated))
		for _, st := range selection.Eliminated {
			eliminatedIDs = append(eliminatedIDs, st.EntryID)
		}
		if txErr = s.entryRepo.MarkEliminated(ctx, tx, eliminatedIDs, roundNumber); txErr != nil {
			return nil, txErr
		}
		if txErr = s.roundRepo.MarkClosed(ctx, tx, round.ID); txErr != nil {
			return nil, txErr
		}
		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, models.StatusRoundClosed); txErr != nil {
			return nil, txErr
		}
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("commit round close: %w", txErr)
	}
	// The round is closed and immutable; its lock entry can go.
	s.locks.release(round.ID)

	advancingIDs := make([]int, 0, len(selection.Qualifiers))
	for _, st := range selection.Qualifiers {
		advancingIDs = append(advancingIDs, st.EntryID)
	}
	if !isFinal {
		if result.Advancing, err = s.entryRepo.ListByIDs(ctx, nil, advancingIDs); err != nil {
			return nil, err
		}
		eliminatedIDs := make([]int, 0, len(selection.Eliminated))
		for _, st := range selection.Eliminated {
			eliminatedIDs = append(eliminatedIDs, st.EntryID)
		}
		if result.Eliminated, err = s.entryRepo.ListByIDs(ctx, nil, eliminatedIDs); err != nil {
			return nil, err
		}
	}

	// Stats folding is additive and guarded by a processed marker, so a retry
	// after a crash here cannot double count.
	if err := s.stats.ApplyRoundOutcome(ctx, t, round, selection.Overall); err != nil {
		if !errors.Is(err, repositories.ErrRoundAlreadyApplied) {
			s.logger.Error("stats application failed",
				slog.Int("round_id", round.ID), slog.Any("error", err))
		}
	}

	s.notifier.QualifiersAnnounced(t.ID, roundNumber, advancingIDs)
	s.logger.Info("round closed",
		slog.Int("tournament_id", t.ID),
		slog.Int("round", roundNumber),
		slog.Bool("final", isFinal),
		slog.Int("advancing", len(advancingIDs)))
	return result, nil
}

func (s *tournamentService) AbortRound(ctx context.Context, hostID, tournamentID, roundNumber int) error {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return ErrTournamentClosed
	}
	if t.Status != models.StatusRoundInProgress || t.CurrentRound != roundNumber {
		return fmt.Errorf("%w: round %d is not in progress", ErrIllegalTransition, roundNumber)
	}

	round, err := s.roundRepo.GetByTournamentAndNumber(ctx, nil, tournamentID, roundNumber)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(round.ID)
	defer unlock()

	if t, err = s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return err
	}
	if t.Status.Terminal() {
		return ErrTournamentClosed
	}
	if t.Status != models.StatusRoundInProgress || t.CurrentRound != roundNumber {
		return fmt.Errorf("%w: round %d is not in progress", ErrIllegalTransition, roundNumber)
	}

	finalized, err := s.matchRepo.CountFinalizedByRound(ctx, nil, round.ID)
	if err != nil {
		return err
	}
	if finalized > 0 {
		return ErrAbortNotAllowed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin round abort transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.groupRepo.DeleteByRound(ctx, tx, round.ID); txErr != nil {
		return txErr
	}
	if txErr = s.roundRepo.UpdateStatus(ctx, tx, round.ID, models.RoundConfigured); txErr != nil {
		return txErr
	}
	previous := models.StatusRegistrationClosed
	if roundNumber > 1 {
		previous = models.StatusRoundClosed
	}
	if txErr = s.tournamentRepo.UpdateCurrentRound(ctx, tx, t.ID, roundNumber-1); txErr != nil {
		return txErr
	}
	if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, t.ID, previous); txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("commit round abort: %w", txErr)
	}
	// Groups and matches are gone; a restart re-creates the lock entry.
	s.locks.release(round.ID)
	s.logger.Info("round aborted", slog.Int("tournament_id", t.ID), slog.Int("round", roundNumber))
	return nil
}

func (s *tournamentService) FinalPlacements(ctx context.Context, tournamentID int) ([]*models.FinalPlacement, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.tournamentRepo.ListFinalPlacements(ctx, tournamentID)
}

func (s *tournamentService) CancelTournament(ctx context.Context, hostID, tournamentID int) error {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return err
	}
	return s.transition(ctx, nil, t, models.StatusCanceled)
}

func (s *tournamentService) UploadBanner(ctx context.Context, hostID, tournamentID int, contentType string, banner io.Reader) (string, error) {
	t, err := s.requireHost(ctx, hostID, tournamentID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("tournaments/%d/banner-%s", t.ID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, contentType, banner)
	if err != nil {
		return "", fmt.Errorf("upload banner: %w", err)
	}

	if t.BannerKey != nil {
		if delErr := s.uploader.Delete(ctx, *t.BannerKey); delErr != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.String("key", *t.BannerKey), slog.Any("error", delErr))
		}
	}
	if err := s.tournamentRepo.UpdateBannerKey(ctx, t.ID, &result.Key); err != nil {
		return "", err
	}
	return s.uploader.GetPublicURL(result.Key), nil
}

// AutoUpdateTournamentStatusesByDates rolls registration windows forward on a
// schedule, the way the platform's background worker does for statuses that
// depend only on time.
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	now := time.Now()
	candidates, err := s.tournamentRepo.ListForAutoStatusUpdate(ctx, now)
	if err != nil {
		return fmt.Errorf("list tournaments for status update: %w", err)
	}

	for _, t := range candidates {
		var next models.TournamentStatus
		switch {
		case t.Status == models.StatusDraft && !t.RegStart.After(now):
			next = models.StatusRegistrationOpen
		case t.Status == models.StatusRegistrationOpen && !t.RegEnd.After(now):
			next = models.StatusRegistrationClosed
		default:
			continue
		}
		if err := s.transition(ctx, nil, t, next); err != nil {
			s.logger.Error("auto status update failed",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		s.logger.Info("tournament status advanced",
			slog.Int("tournament_id", t.ID), slog.String("status", string(next)))
	}
	return nil
}
