package formation

import (
	"context"
	"errors"

	"github.com/scrimverse/tournament-engine/models"
)

// MaxGroupCapacity is the hard upper bound on teams sharing one lobby.
const MaxGroupCapacity = 25

var (
	ErrInvalidCapacity = errors.New("group capacity must be between 2 and 25")
	ErrEmptyEntrySet   = errors.New("no entries available for group formation")
	ErrOddEntryCount   = errors.New("head-to-head formation requires an even number of entries")
)

// FormGroupsParams carries everything a strategy needs to partition a round.
type FormGroupsParams struct {
	Round   *models.Round
	Entries []*models.TeamEntry

	// Seed makes the shuffle reproducible. Zero means seed from entropy.
	Seed int64
}

// FormedGroup is a strategy's output before persistence: a named, ordered
// set of entries that will become one Group with its empty matches.
type FormedGroup struct {
	Name    string
	Entries []*models.TeamEntry
}

// GroupFormer partitions a round's confirmed entries into groups.
// Implementations must not mutate the input slice.
type GroupFormer interface {
	FormGroups(ctx context.Context, params FormGroupsParams) ([]*FormedGroup, error)

	Name() string
}

// ForStrategy returns the former matching a round's configured strategy.
func ForStrategy(strategy models.FormationStrategy) (GroupFormer, error) {
	switch strategy {
	case models.FormationMultiTeam:
		return NewMultiTeamFormer(), nil
	case models.FormationHeadToHead:
		return NewHeadToHeadFormer(), nil
	default:
		return nil, errors.New("unsupported formation strategy '" + string(strategy) + "'")
	}
}
