package pick

import "time"

const (
	StatusPending = "pending"
	StatusLocked  = "locked"
)

// Pick is one member's team choice for one gameweek. Pending picks are
// overwritten last-write-wins until lock; a locked pick is immutable and
// permanently burns the team for that (room, user).
type Pick struct {
	RoomID          string
	UserID          string
	Gameweek        int
	TeamID          string
	Status          string
	SystemGenerated bool
	SubmittedAt     time.Time
}

func (p Pick) Locked() bool {
	return p.Status == StatusLocked
}
