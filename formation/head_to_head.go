package formation

import (
	"context"
	"fmt"
)

type HeadToHeadFormer struct{}

func NewHeadToHeadFormer() GroupFormer {
	return &HeadToHeadFormer{}
}

func (f *HeadToHeadFormer) Name() string {
	return "HeadToHead"
}

// FormGroups pairs entries into two-team lobbies for 5v5-style games.
// The entry count must be even; byes are resolved by the host before the
// round starts. Pairings are random (seedable) and sequential.
func (f *HeadToHeadFormer) FormGroups(ctx context.Context, params FormGroupsParams) ([]*FormedGroup, error) {
	if len(params.Entries) == 0 {
		return nil, ErrEmptyEntrySet
	}
	if len(params.Entries)%2 != 0 {
		return nil, ErrOddEntryCount
	}

	shuffled := shuffleEntries(params.Entries, params.Seed)

	groups := make([]*FormedGroup, 0, len(shuffled)/2)
	for i := 0; i < len(shuffled); i += 2 {
		groups = append(groups, &FormedGroup{
			Name:    fmt.Sprintf("Lobby %d", i/2+1),
			Entries: shuffled[i : i+2],
		})
	}
	return groups, nil
}
