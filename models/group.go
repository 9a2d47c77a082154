package models

import "time"

// GroupStatus tracks one group's progress through its matches.
type GroupStatus string

const (
	GroupWaiting   GroupStatus = "waiting"
	GroupOngoing   GroupStatus = "ongoing"
	GroupCompleted GroupStatus = "completed"
)

// Group is a set of teams competing together within a round: many teams in a
// shared lobby for multi_team, exactly two for head_to_head. The name is
// presentation only ("Group A", "Lobby 3") and carries no behavior.
type Group struct {
	ID        int         `json:"id" db:"id"`
	RoundID   int         `json:"round_id" db:"round_id"`
	Name      string      `json:"name" db:"name"`
	Status    GroupStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`

	// Members in seeding order. Populated by the repository.
	Members []*TeamEntry `json:"members,omitempty" db:"-"`
	Matches []*Match     `json:"matches,omitempty" db:"-"`
}

// MemberIDs returns the entry IDs of the group's members in order.
func (g *Group) MemberIDs() []int {
	ids := make([]int, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// HasMember reports whether the entry participates in this group.
func (g *Group) HasMember(entryID int) bool {
	for _, m := range g.Members {
		if m.ID == entryID {
			return true
		}
	}
	return false
}
