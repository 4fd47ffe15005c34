package deal

import "time"

const (
	StatusOpen     = "open"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

const (
	VoteAccept = "accept"
	VoteReject = "reject"
)

// Proposal is a pot-split offer put to the survivors of a room.
// RequiredVoters is a snapshot of the active members at proposal time;
// members eliminated mid-vote drop out of the required set, late joiners
// never enter it. Terminal proposals are immutable.
type Proposal struct {
	ID             string
	RoomID         string
	ProposedBy     string
	AtGameweek     int
	RequiredVoters []string
	Votes          map[string]string
	Status         string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	ClosedAt       *time.Time
}

func (p Proposal) Terminal() bool {
	return p.Status != StatusOpen
}

// Requires reports whether userID is still in the required voter set.
func (p Proposal) Requires(userID string) bool {
	for _, id := range p.RequiredVoters {
		if id == userID {
			return true
		}
	}
	return false
}

// Unanimous reports whether every required voter has voted accept.
func (p Proposal) Unanimous() bool {
	for _, id := range p.RequiredVoters {
		if p.Votes[id] != VoteAccept {
			return false
		}
	}
	return len(p.RequiredVoters) > 0
}
