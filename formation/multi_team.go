package formation

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/scrimverse/tournament-engine/models"
)

const groupLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type MultiTeamFormer struct{}

func NewMultiTeamFormer() GroupFormer {
	return &MultiTeamFormer{}
}

func (f *MultiTeamFormer) Name() string {
	return "MultiTeam"
}

// FormGroups partitions entries into the fewest groups such that no group
// exceeds the round's capacity, spreading teams as evenly as possible.
// Entries are shuffled before assignment so lobby composition is not biased
// by registration order.
func (f *MultiTeamFormer) FormGroups(ctx context.Context, params FormGroupsParams) ([]*FormedGroup, error) {
	capacity := params.Round.Capacity
	if capacity < 2 || capacity > MaxGroupCapacity {
		return nil, ErrInvalidCapacity
	}
	if len(params.Entries) == 0 {
		return nil, ErrEmptyEntrySet
	}

	total := len(params.Entries)
	numGroups := (total + capacity - 1) / capacity

	// Even spread: base teams per group, the first `remainder` groups take
	// one extra. Sizes sum to total and none exceeds capacity.
	base := total / numGroups
	remainder := total % numGroups

	shuffled := shuffleEntries(params.Entries, params.Seed)

	groups := make([]*FormedGroup, 0, numGroups)
	index := 0
	for g := 0; g < numGroups; g++ {
		size := base
		if g < remainder {
			size++
		}
		name := fmt.Sprintf("Group %c", groupLetters[g%len(groupLetters)])
		if g >= len(groupLetters) {
			name = fmt.Sprintf("Group %d", g+1)
		}
		groups = append(groups, &FormedGroup{
			Name:    name,
			Entries: shuffled[index : index+size],
		})
		index += size
	}
	return groups, nil
}

func shuffleEntries(entries []*models.TeamEntry, seed int64) []*models.TeamEntry {
	shuffled := make([]*models.TeamEntry, len(entries))
	copy(shuffled, entries)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
