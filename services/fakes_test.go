package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/repositories"
	"github.com/scrimverse/tournament-engine/storage"
)

// The in-memory repositories below back the service tests. Transactions are
// satisfied by a stub driver whose Begin/Commit/Rollback are no-ops; the
// fakes themselves apply writes immediately, which is enough to test the
// service-level sequencing and guards.

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

var registerStub sync.Once

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	registerStub.Do(func() { sql.Register("stub", stubDriver{}) })
	conn, err := sql.Open("stub", "")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type memStore struct {
	mu sync.Mutex

	nextID int

	tournaments  map[int]*models.Tournament
	entries      map[int]*models.TeamEntry
	rounds       map[int]*models.Round
	groups       map[int]*models.Group
	groupMembers map[int][]int
	matches      map[int]*models.Match
	scores       map[int]map[int]*models.MatchScoreEntry
	standings    map[int][]*models.GroupStanding
	stats        map[int]map[string]*models.TeamStatistics
	processed    map[int]bool
	placements   []*models.FinalPlacement
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:  make(map[int]*models.Tournament),
		entries:      make(map[int]*models.TeamEntry),
		rounds:       make(map[int]*models.Round),
		groups:       make(map[int]*models.Group),
		groupMembers: make(map[int][]int),
		matches:      make(map[int]*models.Match),
		scores:       make(map[int]map[int]*models.MatchScoreEntry),
		standings:    make(map[int][]*models.GroupStanding),
		stats:        make(map[int]map[string]*models.TeamStatistics),
		processed:    make(map[int]bool),
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

// --- tournaments ---

type fakeTournamentRepo struct{ s *memStore }

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tournaments {
		if existing.Title == t.Title {
			return repositories.ErrTournamentTitleConflict
		}
	}
	t.ID = r.s.id()
	clone := *t
	r.s.tournaments[t.ID] = &clone
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.s.tournaments {
		if filter.GameName != nil && t.GameName != *filter.GameName {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateCurrentRound(_ context.Context, _ repositories.SQLExecutor, id, round int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.CurrentRound = round
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(_ context.Context, id int, bannerKey *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) ListForAutoStatusUpdate(_ context.Context, _ time.Time) ([]*models.Tournament, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.s.tournaments {
		if t.Status == models.StatusDraft || t.Status == models.StatusRegistrationOpen {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) RecordFinalPlacements(_ context.Context, _ repositories.SQLExecutor, placements []*models.FinalPlacement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range placements {
		dup := false
		for _, existing := range r.s.placements {
			if existing.TournamentID == p.TournamentID && existing.EntryID == p.EntryID {
				dup = true
				break
			}
		}
		if !dup {
			r.s.placements = append(r.s.placements, p)
		}
	}
	return nil
}

func (r *fakeTournamentRepo) ListFinalPlacements(_ context.Context, tournamentID int) ([]*models.FinalPlacement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.FinalPlacement
	for _, p := range r.s.placements {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

// --- entries ---

type fakeEntryRepo struct{ s *memStore }

func (r *fakeEntryRepo) Create(_ context.Context, e *models.TeamEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.entries {
		if existing.TournamentID == e.TournamentID && existing.DisplayName == e.DisplayName {
			return repositories.ErrEntryConflict
		}
	}
	e.ID = r.s.id()
	e.CreatedAt = time.Now()
	clone := *e
	r.s.entries[e.ID] = &clone
	return nil
}

func (r *fakeEntryRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.TeamEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return nil, repositories.ErrEntryNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEntryRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, activeOnly bool) ([]*models.TeamEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.TeamEntry
	for _, e := range r.s.entries {
		if e.TournamentID != tournamentID {
			continue
		}
		if activeOnly && e.Eliminated {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEntryRepo) ListByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) ([]*models.TeamEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.TeamEntry
	for _, id := range ids {
		if e, ok := r.s.entries[id]; ok {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) MarkEliminated(_ context.Context, _ repositories.SQLExecutor, entryIDs []int, roundNumber int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range entryIDs {
		if e, ok := r.s.entries[id]; ok {
			e.Eliminated = true
			round := roundNumber
			e.EliminatedInRound = &round
		}
	}
	return nil
}

// --- rounds ---

type fakeRoundRepo struct{ s *memStore }

func (r *fakeRoundRepo) Create(_ context.Context, _ repositories.SQLExecutor, round *models.Round) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.rounds {
		if existing.TournamentID == round.TournamentID && existing.Number == round.Number {
			return repositories.ErrRoundConflict
		}
	}
	round.ID = r.s.id()
	round.CreatedAt = time.Now()
	clone := *round
	r.s.rounds[round.ID] = &clone
	return nil
}

func (r *fakeRoundRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	clone := *round
	return &clone, nil
}

func (r *fakeRoundRepo) GetByTournamentAndNumber(_ context.Context, _ repositories.SQLExecutor, tournamentID, number int) (*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, round := range r.s.rounds {
		if round.TournamentID == tournamentID && round.Number == number {
			clone := *round
			return &clone, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r *fakeRoundRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Round, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Round
	for _, round := range r.s.rounds {
		if round.TournamentID == tournamentID {
			clone := *round
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *fakeRoundRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.RoundStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Status = status
	return nil
}

func (r *fakeRoundRepo) MarkClosed(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	round, ok := r.s.rounds[id]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	round.Status = models.RoundClosed
	now := time.Now()
	round.ClosedAt = &now
	return nil
}

// --- groups ---

type fakeGroupRepo struct{ s *memStore }

func (r *fakeGroupRepo) Create(_ context.Context, _ repositories.SQLExecutor, group *models.Group, memberIDs []int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group.ID = r.s.id()
	group.CreatedAt = time.Now()
	clone := *group
	clone.Members = nil
	r.s.groups[group.ID] = &clone
	r.s.groupMembers[group.ID] = append([]int(nil), memberIDs...)
	return nil
}

func (r *fakeGroupRepo) loadLocked(id int) (*models.Group, error) {
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	clone := *g
	clone.Members = nil
	for _, entryID := range r.s.groupMembers[id] {
		if e, ok := r.s.entries[entryID]; ok {
			entry := *e
			clone.Members = append(clone.Members, &entry)
		}
	}
	return &clone, nil
}

func (r *fakeGroupRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.loadLocked(id)
}

func (r *fakeGroupRepo) ListByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) ([]*models.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int
	for id, g := range r.s.groups {
		if g.RoundID == roundID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := r.loadLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (r *fakeGroupRepo) CountByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, g := range r.s.groups {
		if g.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (r *fakeGroupRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.GroupStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.Status = status
	return nil
}

func (r *fakeGroupRepo) DeleteByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, g := range r.s.groups {
		if g.RoundID != roundID {
			continue
		}
		for matchID, m := range r.s.matches {
			if m.GroupID == id {
				delete(r.s.matches, matchID)
				delete(r.s.scores, matchID)
			}
		}
		delete(r.s.groups, id)
		delete(r.s.groupMembers, id)
		delete(r.s.standings, id)
	}
	return nil
}

// --- matches ---

type fakeMatchRepo struct{ s *memStore }

func (r *fakeMatchRepo) CreateForGroup(_ context.Context, _ repositories.SQLExecutor, groupID, matchCount int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Match, 0, matchCount)
	for n := 1; n <= matchCount; n++ {
		m := &models.Match{
			ID:      r.s.id(),
			GroupID: groupID,
			Number:  n,
			Status:  models.MatchScheduled,
		}
		r.s.matches[m.ID] = m
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMatchRepo) GetByGroupAndNumber(_ context.Context, _ repositories.SQLExecutor, groupID, number int) (*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.matches {
		if m.GroupID == groupID && m.Number == number {
			clone := *m
			return &clone, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Match
	for _, m := range r.s.matches {
		if m.GroupID == groupID {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *fakeMatchRepo) roundMatchesLocked(roundID int) []*models.Match {
	var out []*models.Match
	for _, m := range r.s.matches {
		if g, ok := r.s.groups[m.GroupID]; ok && g.RoundID == roundID {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeMatchRepo) ListByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) ([]*models.Match, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	matches := r.roundMatchesLocked(roundID)
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) UpdateRoom(_ context.Context, _ repositories.SQLExecutor, id int, roomID, roomPassword *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if roomID != nil {
		m.RoomID = roomID
	}
	if roomPassword != nil {
		m.RoomPassword = roomPassword
	}
	return nil
}

func (r *fakeMatchRepo) MarkStarted(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = models.MatchLive
	m.StartedAt = &at
	return nil
}

func (r *fakeMatchRepo) MarkEnded(_ context.Context, _ repositories.SQLExecutor, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.EndedAt = &at
	return nil
}

func (r *fakeMatchRepo) CountUnfinalizedByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, m := range r.roundMatchesLocked(roundID) {
		if m.Status != models.MatchFinalized {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) CountFinalizedByRound(_ context.Context, _ repositories.SQLExecutor, roundID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, m := range r.roundMatchesLocked(roundID) {
		if m.Status == models.MatchFinalized {
			count++
		}
	}
	return count, nil
}

// --- scores ---

type fakeScoreRepo struct{ s *memStore }

func (r *fakeScoreRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, score *models.MatchScoreEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byEntry, ok := r.s.scores[score.MatchID]
	if !ok {
		byEntry = make(map[int]*models.MatchScoreEntry)
		r.s.scores[score.MatchID] = byEntry
	}
	if existing, ok := byEntry[score.EntryID]; ok {
		score.ID = existing.ID
	} else {
		score.ID = r.s.id()
	}
	score.SubmittedAt = time.Now()
	clone := *score
	byEntry[score.EntryID] = &clone
	return nil
}

func (r *fakeScoreRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.MatchScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.MatchScoreEntry
	for _, sc := range r.s.scores[matchID] {
		clone := *sc
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

func (r *fakeScoreRepo) listGroupLocked(groupID int, finalizedOnly bool) []*models.MatchScoreEntry {
	var out []*models.MatchScoreEntry
	for matchID, byEntry := range r.s.scores {
		m, ok := r.s.matches[matchID]
		if !ok || m.GroupID != groupID {
			continue
		}
		if finalizedOnly && m.Status != models.MatchFinalized {
			continue
		}
		for _, sc := range byEntry {
			clone := *sc
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchID != out[j].MatchID {
			return out[i].MatchID < out[j].MatchID
		}
		return out[i].EntryID < out[j].EntryID
	})
	return out
}

func (r *fakeScoreRepo) ListByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listGroupLocked(groupID, false), nil
}

func (r *fakeScoreRepo) ListFinalizedByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.MatchScoreEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listGroupLocked(groupID, true), nil
}

func (r *fakeScoreRepo) CountByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.scores[matchID]), nil
}

// --- standings cache ---

type fakeStandingRepo struct{ s *memStore }

func (r *fakeStandingRepo) ReplaceForGroup(_ context.Context, _ repositories.SQLExecutor, groupID int, standings []*models.GroupStanding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.GroupStanding, 0, len(standings))
	for _, st := range standings {
		clone := *st
		out = append(out, &clone)
	}
	r.s.standings[groupID] = out
	return nil
}

func (r *fakeStandingRepo) ListByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.GroupStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := r.s.standings[groupID]
	out := make([]*models.GroupStanding, 0, len(stored))
	for _, st := range stored {
		clone := *st
		out = append(out, &clone)
	}
	return out, nil
}

// --- statistics ---

type fakeStatsRepo struct{ s *memStore }

func (r *fakeStatsRepo) GetOrCreate(_ context.Context, _ repositories.SQLExecutor, teamID int, gameName string) (*models.TeamStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byGame, ok := r.s.stats[teamID]
	if !ok {
		byGame = make(map[string]*models.TeamStatistics)
		r.s.stats[teamID] = byGame
	}
	st, ok := byGame[gameName]
	if !ok {
		st = &models.TeamStatistics{TeamID: teamID, GameName: gameName}
		byGame[gameName] = st
	}
	clone := *st
	return &clone, nil
}

func (r *fakeStatsRepo) ApplyDelta(_ context.Context, _ repositories.SQLExecutor, delta models.StatsDelta) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byGame, ok := r.s.stats[delta.TeamID]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	st, ok := byGame[delta.GameName]
	if !ok {
		return repositories.ErrStatsNotFound
	}
	st.TournamentWins += delta.TournamentWins
	st.ScrimWins += delta.ScrimWins
	st.KillPoints += delta.KillPoints
	st.PlacementPoints += delta.PlacementPoints
	st.TotalPoints += delta.KillPoints + delta.PlacementPoints
	st.UpdatedAt = time.Now()
	return nil
}

func (r *fakeStatsRepo) MarkRoundProcessed(_ context.Context, _ repositories.SQLExecutor, roundID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.processed[roundID] {
		return repositories.ErrRoundAlreadyApplied
	}
	r.s.processed[roundID] = true
	return nil
}

func (r *fakeStatsRepo) Leaderboard(_ context.Context, gameName string, limit int) ([]*models.TeamStatistics, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.TeamStatistics
	for _, byGame := range r.s.stats {
		if st, ok := byGame[gameName]; ok {
			clone := *st
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalPoints > out[j].TotalPoints })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- notifier and uploader ---

type recordingNotifier struct {
	mu         sync.Mutex
	started    []int
	finalized  []int
	qualifiers [][]int
}

func (n *recordingNotifier) RoundStarted(_, roundNumber, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, roundNumber)
}

func (n *recordingNotifier) ScoresFinalized(_, groupID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finalized = append(n.finalized, groupID)
}

func (n *recordingNotifier) QualifiersAnnounced(_, _ int, entryIDs []int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.qualifiers = append(n.qualifiers, entryIDs)
}

type fakeUploader struct {
	uploaded []string
	deleted  []string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, _ io.Reader) (*storage.UploadResult, error) {
	u.uploaded = append(u.uploaded, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.test/" + key}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string { return "https://cdn.test/" + key }

// --- fixture ---

type fixture struct {
	store    *memStore
	notifier *recordingNotifier
	uploader *fakeUploader
	locks    *RoundLocks

	tournaments TournamentService
	scores      ScoreService
	stats       StatsService
	qual        QualificationService

	entryRepo repositories.EntryRepository
	matchRepo repositories.MatchRepository
	roundRepo repositories.RoundRepository
	groupRepo repositories.GroupRepository
	statsRepo repositories.StatsRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	conn := newStubDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tournamentRepo := &fakeTournamentRepo{s: store}
	entryRepo := &fakeEntryRepo{s: store}
	roundRepo := &fakeRoundRepo{s: store}
	groupRepo := &fakeGroupRepo{s: store}
	matchRepo := &fakeMatchRepo{s: store}
	scoreRepo := &fakeScoreRepo{s: store}
	standingRepo := &fakeStandingRepo{s: store}
	statsRepo := &fakeStatsRepo{s: store}

	notifier := &recordingNotifier{}
	uploader := &fakeUploader{}
	locks := NewRoundLocks()

	qual := NewQualificationService(groupRepo, matchRepo, scoreRepo)
	stats := NewStatsService(conn, statsRepo, entryRepo, logger)
	scores := NewScoreService(conn, tournamentRepo, roundRepo, groupRepo, matchRepo,
		scoreRepo, standingRepo, notifier, locks, logger)
	tournaments := NewTournamentService(conn, tournamentRepo, roundRepo, groupRepo,
		matchRepo, entryRepo, NewRepoEntryProvider(entryRepo), qual, stats,
		notifier, uploader, locks, logger)

	return &fixture{
		store:       store,
		notifier:    notifier,
		uploader:    uploader,
		locks:       locks,
		tournaments: tournaments,
		scores:      scores,
		stats:       stats,
		qual:        qual,
		entryRepo:   entryRepo,
		matchRepo:   matchRepo,
		roundRepo:   roundRepo,
		groupRepo:   groupRepo,
		statsRepo:   statsRepo,
	}
}

const testHostID = 7

var titleSeq atomic.Int64

func (f *fixture) createTournament(t *testing.T, mode models.EventMode, totalRounds, maxParticipants int) *models.Tournament {
	t.Helper()
	now := time.Now()
	tournament := &models.Tournament{
		HostID:          testHostID,
		Title:           fmt.Sprintf("Winter Clash %d", titleSeq.Add(1)),
		GameName:        "bgmi",
		GameMode:        "squad",
		EventMode:       mode,
		MaxParticipants: maxParticipants,
		TotalRounds:     totalRounds,
		RegStart:        now.Add(-time.Hour),
		RegEnd:          now.Add(time.Hour),
		StartDate:       now.Add(2 * time.Hour),
		EndDate:         now.Add(26 * time.Hour),
	}
	if err := f.tournaments.CreateTournament(context.Background(), tournament); err != nil {
		t.Fatalf("create tournament: %v", err)
	}
	return tournament
}

func (f *fixture) registerTeams(t *testing.T, tournamentID, count int) []*models.TeamEntry {
	t.Helper()
	ctx := context.Background()
	entries := make([]*models.TeamEntry, 0, count)
	for i := 0; i < count; i++ {
		entry, err := f.tournaments.RegisterEntry(ctx, tournamentID, 100+i, teamName(i))
		if err != nil {
			t.Fatalf("register team %d: %v", i, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func teamName(i int) string {
	return "Team " + string(rune('A'+i%26)) + string(rune('0'+i/26))
}

// openAndFill takes a fresh tournament through registration with count teams
// and leaves it registration_closed, ready for round configuration.
func (f *fixture) openAndFill(t *testing.T, tournament *models.Tournament, count int) []*models.TeamEntry {
	t.Helper()
	ctx := context.Background()
	if err := f.tournaments.OpenRegistration(ctx, testHostID, tournament.ID); err != nil {
		t.Fatalf("open registration: %v", err)
	}
	entries := f.registerTeams(t, tournament.ID, count)
	if err := f.tournaments.CloseRegistration(ctx, testHostID, tournament.ID); err != nil {
		t.Fatalf("close registration: %v", err)
	}
	return entries
}

// playOutGroup submits identical placeholder scores for every member of every
// match of a group and finalizes them in order.
func (f *fixture) playOutGroup(t *testing.T, group *models.Group, matches []*models.Match, points func(entryID, matchNumber int) (kills, placement int)) {
	t.Helper()
	ctx := context.Background()
	for _, m := range matches {
		if _, err := f.scores.StartMatch(ctx, testHostID, m.ID); err != nil {
			t.Fatalf("start match %d: %v", m.ID, err)
		}
		for _, member := range group.Members {
			kills, placement := points(member.ID, m.Number)
			if _, err := f.scores.SubmitScore(ctx, testHostID, m.ID, member.ID, kills, placement); err != nil {
				t.Fatalf("submit score for entry %d: %v", member.ID, err)
			}
		}
		if _, err := f.scores.FinalizeMatch(ctx, testHostID, m.ID); err != nil {
			t.Fatalf("finalize match %d: %v", m.ID, err)
		}
	}
}
