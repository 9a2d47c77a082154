package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scrimverse/tournament-engine/models"
)

// scoreFixture drives a single-group multi-team round to in_progress and
// hands back the group and its matches.
func scoreFixture(t *testing.T, teams, matchCount int) (*fixture, *models.Group, []*models.Match) {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()

	tournament := f.createTournament(t, models.EventModeTournament, 1, 32)
	f.openAndFill(t, tournament, teams)

	cfg := RoundConfig{
		Strategy:      models.FormationMultiTeam,
		Capacity:      25,
		MatchCount:    matchCount,
		Qualification: topKRule(1),
	}
	if _, err := f.tournaments.ConfigureRound(ctx, testHostID, tournament.ID, cfg); err != nil {
		t.Fatalf("configure round: %v", err)
	}
	round, err := f.tournaments.StartRound(ctx, testHostID, tournament.ID, 1)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	group := round.Groups[0]
	return f, group, group.Matches
}

func TestSubmitScoreOverwritesNotAccumulates(t *testing.T) {
	f, group, matches := scoreFixture(t, 3, 1)
	ctx := context.Background()
	match := matches[0]

	if _, err := f.scores.StartMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("start match: %v", err)
	}

	target := group.Members[0]
	if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, target.ID, 9, 9); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Correction before finalize replaces, never adds.
	if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, target.ID, 4, 6); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	for _, member := range group.Members[1:] {
		if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, member.ID, 1, 1); err != nil {
			t.Fatalf("submit for entry %d: %v", member.ID, err)
		}
	}

	standings, err := f.scores.FinalizeMatch(ctx, testHostID, match.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if standings[0].EntryID != target.ID {
		t.Fatalf("leader is entry %d, want %d", standings[0].EntryID, target.ID)
	}
	if standings[0].TotalPoints != 10 || standings[0].KillPoints != 4 {
		t.Fatalf("leader totals %d/%d, want 10 total with 4 kills", standings[0].TotalPoints, standings[0].KillPoints)
	}
}

func TestSubmitScoreRejectsOutsiders(t *testing.T) {
	f, _, matches := scoreFixture(t, 3, 1)
	ctx := context.Background()

	if _, err := f.scores.SubmitScore(ctx, testHostID, matches[0].ID, 99999, 5, 5); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("got %v, want ErrUnknownParticipant", err)
	}
	if _, err := f.scores.SubmitScore(ctx, testHostID, matches[0].ID, 1, -1, 0); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("negative points: got %v, want ErrValidationFailed", err)
	}
}

func TestFinalizeRequiresCompleteScores(t *testing.T) {
	f, group, matches := scoreFixture(t, 3, 1)
	ctx := context.Background()
	match := matches[0]

	if _, err := f.scores.StartMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("start match: %v", err)
	}
	if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, group.Members[0].ID, 5, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.scores.FinalizeMatch(ctx, testHostID, match.ID); !errors.Is(err, ErrIncompleteScores) {
		t.Fatalf("got %v, want ErrIncompleteScores", err)
	}
}

func TestFinalizedMatchRejectsWritesUntilReopened(t *testing.T) {
	f, group, matches := scoreFixture(t, 2, 1)
	ctx := context.Background()
	match := matches[0]

	f.playOutGroup(t, group, matches, func(entryID, _ int) (int, int) { return entryID, 0 })

	if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, group.Members[0].ID, 1, 1); !errors.Is(err, ErrMatchFinalized) {
		t.Fatalf("write to finalized: got %v, want ErrMatchFinalized", err)
	}
	if _, err := f.scores.FinalizeMatch(ctx, testHostID, match.ID); !errors.Is(err, ErrMatchFinalized) {
		t.Fatalf("double finalize: got %v, want ErrMatchFinalized", err)
	}

	if err := f.scores.ReopenMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := f.scores.ReopenMatch(ctx, testHostID, match.ID); !errors.Is(err, ErrMatchNotFinalized) {
		t.Fatalf("reopen twice: got %v, want ErrMatchNotFinalized", err)
	}

	loser := group.Members[0]
	if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, loser.ID, 100, 0); err != nil {
		t.Fatalf("submit after reopen: %v", err)
	}
	standings, err := f.scores.FinalizeMatch(ctx, testHostID, match.ID)
	if err != nil {
		t.Fatalf("refinalize: %v", err)
	}
	if standings[0].EntryID != loser.ID {
		t.Fatalf("corrected leader is %d, want %d", standings[0].EntryID, loser.ID)
	}
}

func TestMatchesStartSequentially(t *testing.T) {
	f, group, matches := scoreFixture(t, 2, 2)
	ctx := context.Background()

	if _, err := f.scores.StartMatch(ctx, testHostID, matches[1].ID); !errors.Is(err, ErrSequentialMatchOrder) {
		t.Fatalf("start match 2 first: got %v, want ErrSequentialMatchOrder", err)
	}

	f.playOutGroup(t, group, matches[:1], func(int, int) (int, int) { return 1, 1 })

	if _, err := f.scores.StartMatch(ctx, testHostID, matches[1].ID); err != nil {
		t.Fatalf("start match 2 after match 1 finalized: %v", err)
	}
}

func TestGroupCompletesWhenLastMatchFinalizes(t *testing.T) {
	f, group, matches := scoreFixture(t, 2, 2)
	ctx := context.Background()

	f.playOutGroup(t, group, matches, func(entryID, matchNumber int) (int, int) {
		return entryID * matchNumber, entryID
	})

	updated, err := f.groupRepo.GetByID(ctx, nil, group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if updated.Status != models.GroupCompleted {
		t.Fatalf("group status %s, want completed", updated.Status)
	}

	// One completion notification, for this group, after its last match.
	if len(f.notifier.finalized) != 1 || f.notifier.finalized[0] != group.ID {
		t.Fatalf("completion notifications: %v", f.notifier.finalized)
	}

	// Cached standings aggregate both matches.
	views, err := f.scores.GetGroupStandings(ctx, group.RoundID)
	if err != nil {
		t.Fatalf("get standings: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("%d standings views, want 1", len(views))
	}
	leader := views[0].Standings[0]
	want := group.Members[1]
	if leader.EntryID != want.ID {
		t.Fatalf("leader entry %d, want %d", leader.EntryID, want.ID)
	}
	if leader.TotalPoints != want.ID*1+want.ID*2+2*want.ID {
		t.Fatalf("leader total %d", leader.TotalPoints)
	}
}

func TestSetMatchRoomLockedAfterStart(t *testing.T) {
	f, _, matches := scoreFixture(t, 2, 1)
	ctx := context.Background()
	match := matches[0]

	roomID := "R-1further"
	password := "hunter2"
	updated, err := f.scores.SetMatchRoom(ctx, testHostID, match.ID, &roomID, &password)
	if err != nil {
		t.Fatalf("set room: %v", err)
	}
	if updated.RoomID == nil || *updated.RoomID != roomID {
		t.Fatalf("room not stored: %+v", updated.RoomID)
	}

	if _, err := f.scores.StartMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("start match: %v", err)
	}
	if _, err := f.scores.SetMatchRoom(ctx, testHostID, match.ID, &roomID, nil); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("room edit after start: got %v, want ErrValidationFailed", err)
	}
}

func TestGetMatchSchedule(t *testing.T) {
	f, group, _ := scoreFixture(t, 4, 3)
	ctx := context.Background()

	schedule, err := f.scores.GetMatchSchedule(ctx, group.RoundID)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if len(schedule) != 1 {
		t.Fatalf("%d schedule groups, want 1", len(schedule))
	}
	if len(schedule[0].Matches) != 3 {
		t.Fatalf("%d matches in schedule, want 3", len(schedule[0].Matches))
	}
	for i, m := range schedule[0].Matches {
		if m.Number != i+1 {
			t.Fatalf("match %d out of order (number %d)", i, m.Number)
		}
		if m.Status != models.MatchScheduled {
			t.Fatalf("fresh match status %s", m.Status)
		}
	}
}

// Status guards must trust only state read while the round lock is held. A
// writer that resolved its snapshot and then queued behind another caller
// sees that caller's committed effect once the lock frees.
func TestSubmitScoreQueuedBehindFinalizeIsRejected(t *testing.T) {
	f, group, matches := scoreFixture(t, 2, 1)
	ctx := context.Background()
	match := matches[0]

	if _, err := f.scores.StartMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("start match: %v", err)
	}
	for _, member := range group.Members {
		if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, member.ID, 5, 5); err != nil {
			t.Fatalf("submit for entry %d: %v", member.ID, err)
		}
	}

	// Hold the round lock so the late submit resolves its snapshot and then
	// parks, exactly as it would behind a concurrent FinalizeMatch.
	release := f.locks.lock(group.RoundID)

	target := group.Members[0]
	submitted := make(chan error, 1)
	go func() {
		_, err := f.scores.SubmitScore(ctx, testHostID, match.ID, target.ID, 99, 0)
		submitted <- err
	}()
	time.Sleep(20 * time.Millisecond)

	// The finalize that won the race has committed by the time the lock frees.
	f.store.mu.Lock()
	f.store.matches[match.ID].Status = models.MatchFinalized
	f.store.mu.Unlock()

	release()

	if err := <-submitted; !errors.Is(err, ErrMatchFinalized) {
		t.Fatalf("late submit on finalized match: got %v, want ErrMatchFinalized", err)
	}
	f.store.mu.Lock()
	kills := f.store.scores[match.ID][target.ID].KillPoints
	f.store.mu.Unlock()
	if kills != 5 {
		t.Fatalf("finalized score was overwritten: kill points %d, want 5", kills)
	}
}

func TestFinalizeMatchQueuedBehindFinalizeIsRejected(t *testing.T) {
	f, group, matches := scoreFixture(t, 2, 1)
	ctx := context.Background()
	match := matches[0]

	if _, err := f.scores.StartMatch(ctx, testHostID, match.ID); err != nil {
		t.Fatalf("start match: %v", err)
	}
	for _, member := range group.Members {
		if _, err := f.scores.SubmitScore(ctx, testHostID, match.ID, member.ID, 3, 2); err != nil {
			t.Fatalf("submit for entry %d: %v", member.ID, err)
		}
	}

	release := f.locks.lock(group.RoundID)

	finalized := make(chan error, 1)
	go func() {
		_, err := f.scores.FinalizeMatch(ctx, testHostID, match.ID)
		finalized <- err
	}()
	time.Sleep(20 * time.Millisecond)

	f.store.mu.Lock()
	f.store.matches[match.ID].Status = models.MatchFinalized
	f.store.mu.Unlock()

	release()

	if err := <-finalized; !errors.Is(err, ErrMatchFinalized) {
		t.Fatalf("second finalize: got %v, want ErrMatchFinalized", err)
	}
}
