package notify

import (
	"strconv"

	"github.com/google/uuid"
)

// Event types pushed to tournament dashboards.
const (
	TypeRoundStarted        = "ROUND_STARTED"
	TypeScoresFinalized     = "SCORES_FINALIZED"
	TypeQualifiersAnnounced = "QUALIFIERS_ANNOUNCED"
)

// Notifier receives engine lifecycle events. Delivery is fire-and-forget:
// implementations must never fail the state transition that produced the
// event, so the interface returns nothing.
type Notifier interface {
	RoundStarted(tournamentID, roundNumber, groupCount int)
	ScoresFinalized(tournamentID, groupID int)
	QualifiersAnnounced(tournamentID, roundNumber int, entryIDs []int)
}

// HubNotifier broadcasts events over the websocket hub, one room per
// tournament.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) broadcast(tournamentID int, msgType string, payload interface{}) {
	room := strconv.Itoa(tournamentID)
	n.hub.BroadcastToRoom(room, Message{
		ID:      uuid.NewString(),
		Type:    msgType,
		Payload: payload,
		RoomID:  room,
	})
}

func (n *HubNotifier) RoundStarted(tournamentID, roundNumber, groupCount int) {
	n.broadcast(tournamentID, TypeRoundStarted, map[string]int{
		"tournament_id": tournamentID,
		"round_number":  roundNumber,
		"group_count":   groupCount,
	})
}

func (n *HubNotifier) ScoresFinalized(tournamentID, groupID int) {
	n.broadcast(tournamentID, TypeScoresFinalized, map[string]int{
		"tournament_id": tournamentID,
		"group_id":      groupID,
	})
}

func (n *HubNotifier) QualifiersAnnounced(tournamentID, roundNumber int, entryIDs []int) {
	n.broadcast(tournamentID, TypeQualifiersAnnounced, map[string]interface{}{
		"tournament_id": tournamentID,
		"round_number":  roundNumber,
		"entry_ids":     entryIDs,
	})
}

// NoopNotifier drops every event. Used in tests and when no hub is wired.
type NoopNotifier struct{}

func (NoopNotifier) RoundStarted(int, int, int)          {}
func (NoopNotifier) ScoresFinalized(int, int)            {}
func (NoopNotifier) QualifiersAnnounced(int, int, []int) {}
