package room

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusOpen       = "open"
	StatusFull       = "full"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// DGWRule decides which fixtures count when a team plays twice in one
// gameweek.
type DGWRule string

const (
	DGWFirstFixtureCounts DGWRule = "first_fixture_counts"
	DGWBothFixturesCount  DGWRule = "both_fixtures_count"
)

// NoPickPolicy decides what happens to an active member with no locked
// pick at lock time.
type NoPickPolicy string

const (
	NoPickDisqualify     NoPickPolicy = "disqualify"
	NoPickRandomEligible NoPickPolicy = "random_eligible"
)

// GameweekPhase is the per-gameweek sub-state while a room is in progress.
type GameweekPhase string

const (
	PhasePicksOpen GameweekPhase = "picks_open"
	PhaseLocked    GameweekPhase = "locked"
	PhaseResolved  GameweekPhase = "resolved"
)

type Config struct {
	BuyInCents    int64
	MaxPlayers    int
	Visibility    string
	DGWRule       DGWRule
	NoPickPolicy  NoPickPolicy
	DealThreshold int
	Recurring     bool
}

// Room is the authoritative record for one survival pool. Mutated only by
// the engine; archival is the only way a room disappears.
type Room struct {
	ID               string
	LeagueID         string
	Name             string
	HostUserID       string
	Config           Config
	InviteCode       string
	Status           string
	PotCents         int64
	StartingGameweek int
	CurrentGameweek  int
	CurrentPhase     GameweekPhase
	WinnerUserIDs    []string
	CreatedAt        time.Time
	ArchivedAt       *time.Time
}

const (
	MemberActive     = "active"
	MemberEliminated = "eliminated"
)

// Membership ties a user to a room. JoinSeq is the join order and breaks
// ties when an even pot split leaves a remainder.
type Membership struct {
	RoomID               string
	UserID               string
	Status               string
	JoinSeq              int
	EliminatedAtGameweek *int
	JoinedAt             time.Time
}

func (m Membership) Active() bool {
	return m.Status == MemberActive
}

func ParseDGWRule(value string) (DGWRule, bool) {
	switch DGWRule(strings.ToLower(strings.TrimSpace(value))) {
	case DGWFirstFixtureCounts:
		return DGWFirstFixtureCounts, true
	case DGWBothFixturesCount:
		return DGWBothFixturesCount, true
	default:
		return "", false
	}
}

func ParseNoPickPolicy(value string) (NoPickPolicy, bool) {
	switch NoPickPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case NoPickDisqualify:
		return NoPickDisqualify, true
	case NoPickRandomEligible:
		return NoPickRandomEligible, true
	default:
		return "", false
	}
}

func (c Config) Validate() error {
	if c.BuyInCents < 0 {
		return fmt.Errorf("buy-in cannot be negative")
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("room needs at least 2 players")
	}
	if c.Visibility != VisibilityPublic && c.Visibility != VisibilityPrivate {
		return fmt.Errorf("visibility must be public or private")
	}
	if _, ok := ParseDGWRule(string(c.DGWRule)); !ok {
		return fmt.Errorf("unknown double gameweek rule %q", c.DGWRule)
	}
	if _, ok := ParseNoPickPolicy(string(c.NoPickPolicy)); !ok {
		return fmt.Errorf("unknown no-pick policy %q", c.NoPickPolicy)
	}
	if c.DealThreshold < 2 {
		return fmt.Errorf("deal threshold must be at least 2")
	}
	if c.DealThreshold > c.MaxPlayers {
		return fmt.Errorf("deal threshold cannot exceed max players")
	}

	return nil
}
