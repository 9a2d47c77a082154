package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/scrimverse/tournament-engine/models"
	"github.com/scrimverse/tournament-engine/repositories"
	"golang.org/x/sync/errgroup"
)

// QualificationResult is the outcome of selecting qualifiers for one round.
// It is a pure function of the round's finalized scores: repeated calls on
// the same state return the same ordering.
type QualificationResult struct {
	// Qualifiers in stable order: group order first, then standing rank.
	Qualifiers []*models.GroupStanding
	// Eliminated teams, same ordering rule.
	Eliminated []*models.GroupStanding
	// Overall is every team in the round ranked by the shared tie-break.
	Overall []*models.GroupStanding
}

type QualificationService interface {
	SelectQualifiers(ctx context.Context, round *models.Round) (*QualificationResult, error)
}

type qualificationService struct {
	groupRepo repositories.GroupRepository
	matchRepo repositories.MatchRepository
	scoreRepo repositories.ScoreRepository
}

func NewQualificationService(
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	scoreRepo repositories.ScoreRepository,
) QualificationService {
	return &qualificationService{
		groupRepo: groupRepo,
		matchRepo: matchRepo,
		scoreRepo: scoreRepo,
	}
}

// groupOutcome pairs a group with its computed standings.
type groupOutcome struct {
	group     *models.Group
	standings []*models.GroupStanding
}

func (s *qualificationService) SelectQualifiers(ctx context.Context, round *models.Round) (*QualificationResult, error) {
	unfinalized, err := s.matchRepo.CountUnfinalizedByRound(ctx, nil, round.ID)
	if err != nil {
		return nil, err
	}
	if unfinalized > 0 {
		return nil, fmt.Errorf("%w: %d matches remain", ErrRoundIncomplete, unfinalized)
	}

	groups, err := s.groupRepo.ListByRound(ctx, nil, round.ID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: round has no groups", ErrRoundIncomplete)
	}

	// Standings per group are independent aggregations; compute them
	// concurrently, keeping results indexed so output order stays stable.
	outcomes := make([]groupOutcome, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			scores, err := s.scoreRepo.ListFinalizedByGroup(gctx, nil, group.ID)
			if err != nil {
				return fmt.Errorf("scores for group %d: %w", group.ID, err)
			}
			outcomes[i] = groupOutcome{
				group:     group,
				standings: models.ComputeStandings(group, scores),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result *QualificationResult
	switch round.Qualification.Kind {
	case models.QualifyTopKPerGroup:
		result, err = s.selectTopKPerGroup(round, outcomes)
	case models.QualifyWinnerOfTopNGroups:
		result, err = s.selectWinnersOfTopNGroups(round, outcomes)
	default:
		return nil, ErrInvalidQualification
	}
	if err != nil {
		return nil, err
	}

	result.Overall = mergeStandings(outcomes)
	return result, nil
}

func (s *qualificationService) selectTopKPerGroup(round *models.Round, outcomes []groupOutcome) (*QualificationResult, error) {
	k := round.Qualification.Count
	if k < 1 || k > round.Capacity {
		return nil, ErrInvalidQualifierCount
	}

	result := &QualificationResult{}
	for _, outcome := range outcomes {
		cut := k
		if cut > len(outcome.standings) {
			cut = len(outcome.standings)
		}
		result.Qualifiers = append(result.Qualifiers, outcome.standings[:cut]...)
		result.Eliminated = append(result.Eliminated, outcome.standings[cut:]...)
	}
	return result, nil
}

// selectWinnersOfTopNGroups ranks head-to-head lobbies by their winner's
// totals and advances the single winner of each of the top n.
func (s *qualificationService) selectWinnersOfTopNGroups(round *models.Round, outcomes []groupOutcome) (*QualificationResult, error) {
	if round.Strategy != models.FormationHeadToHead {
		return nil, fmt.Errorf("%w: winner_of_top_n_groups requires head_to_head formation", ErrInvalidQualification)
	}
	n := round.Qualification.Count
	if n > len(outcomes) {
		return nil, fmt.Errorf("%w: want %d of %d", ErrInsufficientGroups, n, len(outcomes))
	}

	ranked := make([]groupOutcome, len(outcomes))
	copy(ranked, outcomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].standings[0], ranked[j].standings[0]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.KillPoints != b.KillPoints {
			return a.KillPoints > b.KillPoints
		}
		return a.DisplayName < b.DisplayName
	})

	result := &QualificationResult{}
	for i, outcome := range ranked {
		if i < n {
			result.Qualifiers = append(result.Qualifiers, outcome.standings[0])
			result.Eliminated = append(result.Eliminated, outcome.standings[1:]...)
		} else {
			result.Eliminated = append(result.Eliminated, outcome.standings...)
		}
	}
	return result, nil
}

func mergeStandings(outcomes []groupOutcome) []*models.GroupStanding {
	merged := make([]*models.GroupStanding, 0)
	for _, outcome := range outcomes {
		merged = append(merged, outcome.standings...)
	}
	// Copy before re-ranking so per-group rank values survive in callers.
	overall := make([]*models.GroupStanding, len(merged))
	for i, s := range merged {
		clone := *s
		overall[i] = &clone
	}
	models.SortStandings(overall)
	return overall
}
