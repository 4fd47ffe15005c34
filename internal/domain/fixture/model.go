package fixture

import (
	"strings"
	"time"
)

type Outcome string

const (
	OutcomeUnplayed Outcome = "unplayed"
	OutcomeHomeWin  Outcome = "home_win"
	OutcomeAwayWin  Outcome = "away_win"
	OutcomeDraw     Outcome = "draw"
)

// Fixture is one scheduled match inside a (league, gameweek). The outcome
// is written exactly once by the result feed and never reverted through
// the normal path.
type Fixture struct {
	ID         string
	LeagueID   string
	Gameweek   int
	HomeTeamID string
	AwayTeamID string
	KickoffAt  time.Time
	Outcome    Outcome
	FinishedAt *time.Time
}

func ParseOutcome(value string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(value))) {
	case OutcomeHomeWin:
		return OutcomeHomeWin, true
	case OutcomeAwayWin:
		return OutcomeAwayWin, true
	case OutcomeDraw:
		return OutcomeDraw, true
	case OutcomeUnplayed:
		return OutcomeUnplayed, true
	default:
		return "", false
	}
}

func (f Fixture) Final() bool {
	return f.Outcome != OutcomeUnplayed && f.Outcome != ""
}

// Involves reports whether teamID plays in this fixture.
func (f Fixture) Involves(teamID string) bool {
	return f.HomeTeamID == teamID || f.AwayTeamID == teamID
}

// WonBy reports whether teamID won this fixture. A draw is a win for
// neither side.
func (f Fixture) WonBy(teamID string) bool {
	switch f.Outcome {
	case OutcomeHomeWin:
		return f.HomeTeamID == teamID
	case OutcomeAwayWin:
		return f.AwayTeamID == teamID
	default:
		return false
	}
}
