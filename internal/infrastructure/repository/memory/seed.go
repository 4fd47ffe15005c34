package memory

import (
	"fmt"
	"time"

	"github.com/lastpick/survival-pool/internal/domain/fixture"
	"github.com/lastpick/survival-pool/internal/domain/team"
)

const LeagueIDPremierLeague = "eng-premier-league-2026"

func SeedTeams() []team.Team {
	return []team.Team{
		{ID: "eng-ars", LeagueID: LeagueIDPremierLeague, Name: "Arsenal", Short: "ARS"},
		{ID: "eng-avl", LeagueID: LeagueIDPremierLeague, Name: "Aston Villa", Short: "AVL"},
		{ID: "eng-bha", LeagueID: LeagueIDPremierLeague, Name: "Brighton", Short: "BHA"},
		{ID: "eng-che", LeagueID: LeagueIDPremierLeague, Name: "Chelsea", Short: "CHE"},
		{ID: "eng-eve", LeagueID: LeagueIDPremierLeague, Name: "Everton", Short: "EVE"},
		{ID: "eng-liv", LeagueID: LeagueIDPremierLeague, Name: "Liverpool", Short: "LIV"},
		{ID: "eng-mci", LeagueID: LeagueIDPremierLeague, Name: "Manchester City", Short: "MCI"},
		{ID: "eng-mun", LeagueID: LeagueIDPremierLeague, Name: "Manchester United", Short: "MUN"},
		{ID: "eng-new", LeagueID: LeagueIDPremierLeague, Name: "Newcastle", Short: "NEW"},
		{ID: "eng-tot", LeagueID: LeagueIDPremierLeague, Name: "Tottenham", Short: "TOT"},
	}
}

// SeedFixtures schedules five round-robin gameweeks, one Saturday apart,
// every kickoff at 15:00 UTC. Enough runway for a full demo room cycle.
func SeedFixtures() []fixture.Fixture {
	pairings := [][][2]string{
		{{"eng-ars", "eng-avl"}, {"eng-bha", "eng-che"}, {"eng-eve", "eng-liv"}, {"eng-mci", "eng-mun"}, {"eng-new", "eng-tot"}},
		{{"eng-avl", "eng-bha"}, {"eng-che", "eng-eve"}, {"eng-liv", "eng-mci"}, {"eng-mun", "eng-new"}, {"eng-tot", "eng-ars"}},
		{{"eng-ars", "eng-che"}, {"eng-bha", "eng-liv"}, {"eng-eve", "eng-mun"}, {"eng-mci", "eng-new"}, {"eng-avl", "eng-tot"}},
		{{"eng-che", "eng-avl"}, {"eng-liv", "eng-ars"}, {"eng-mun", "eng-bha"}, {"eng-new", "eng-eve"}, {"eng-tot", "eng-mci"}},
		{{"eng-ars", "eng-mci"}, {"eng-avl", "eng-liv"}, {"eng-bha", "eng-new"}, {"eng-che", "eng-tot"}, {"eng-eve", "eng-mun"}},
	}

	firstSaturday := time.Date(2026, 8, 15, 15, 0, 0, 0, time.UTC)
	var out []fixture.Fixture
	for gwIdx, round := range pairings {
		kickoff := firstSaturday.AddDate(0, 0, 7*gwIdx)
		for i, pair := range round {
			out = append(out, fixture.Fixture{
				ID:         fmt.Sprintf("fx-eng-%03d", gwIdx*len(round)+i+1),
				LeagueID:   LeagueIDPremierLeague,
				Gameweek:   gwIdx + 1,
				HomeTeamID: pair[0],
				AwayTeamID: pair[1],
				KickoffAt:  kickoff,
				Outcome:    fixture.OutcomeUnplayed,
			})
		}
	}

	return out
}
