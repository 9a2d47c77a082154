package models

import (
	"sort"
	"time"
)

// GroupStanding is one team's ranked aggregate within a group. Standings are
// derived from the match score log and recomputed whole on every finalize;
// the cached rows are never patched incrementally, so they cannot drift from
// the underlying scores.
type GroupStanding struct {
	ID              int       `json:"id" db:"id"`
	GroupID         int       `json:"group_id" db:"group_id"`
	EntryID         int       `json:"entry_id" db:"entry_id"`
	DisplayName     string    `json:"display_name" db:"display_name"`
	KillPoints      int       `json:"kill_points" db:"kill_points"`
	PlacementPoints int       `json:"placement_points" db:"placement_points"`
	TotalPoints     int       `json:"total_points" db:"total_points"`
	Rank            int       `json:"rank" db:"rank"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// SortStandings orders standings by total points desc, kill points desc,
// display name asc, and assigns ranks starting at 1. The three keys form a
// total order as long as display names are unique within a tournament.
func SortStandings(standings []*GroupStanding) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.KillPoints != b.KillPoints {
			return a.KillPoints > b.KillPoints
		}
		return a.DisplayName < b.DisplayName
	})
	for i, s := range standings {
		s.Rank = i + 1
	}
}

// ComputeStandings folds score entries into one standing per participating
// entry. Entries without any score still get a zero row so every group member
// is ranked.
func ComputeStandings(group *Group, scores []*MatchScoreEntry) []*GroupStanding {
	byEntry := make(map[int]*GroupStanding, len(group.Members))
	standings := make([]*GroupStanding, 0, len(group.Members))
	for _, m := range group.Members {
		s := &GroupStanding{
			GroupID:     group.ID,
			EntryID:     m.ID,
			DisplayName: m.DisplayName,
		}
		byEntry[m.ID] = s
		standings = append(standings, s)
	}
	for _, score := range scores {
		s, ok := byEntry[score.EntryID]
		if !ok {
			continue
		}
		s.KillPoints += score.KillPoints
		s.PlacementPoints += score.PlacementPoints
		s.TotalPoints += score.TotalPoints
	}
	SortStandings(standings)
	return standings
}
