package timeline

import "time"

// Event kinds mirror what the room timeline surfaces to players.
const (
	KindGameStarted       = "game_started"
	KindMemberJoined      = "member_joined"
	KindPickLocked        = "pick_locked"
	KindElimination       = "elimination"
	KindResultsFinal      = "results_final"
	KindDealProposed      = "deal_proposed"
	KindDealAccepted      = "deal_accepted"
	KindDealRejected      = "deal_rejected"
	KindDealExpired       = "deal_expired"
	KindRoomCompleted     = "room_completed"
	KindRoomRestarted     = "room_restarted"
	KindOutcomeOverridden = "outcome_overridden"
)

// Event is one append-only audit record. Events are never mutated or
// deleted; dispute resolution reads them verbatim.
type Event struct {
	ID      string
	RoomID  string
	At      time.Time
	Kind    string
	Payload map[string]any
}
