package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleElimination_EightTeams(t *testing.T) {
	plan := generatePlan(t, models.FormatSingleElimination, 8, func(p *GenerateBracketParams) {
		p.FinalsBestOf = 5
	})

	require.Len(t, plan.Stages, 1)
	assert.Equal(t, models.StageSingleElimination, plan.Stages[0].Type)
	assert.Equal(t, 3, plan.Stages[0].Rounds)
	require.Len(t, plan.Matches, 7)

	r1m1 := matchByCode(t, plan.Matches, "SE-R1-M1")
	assert.Equal(t, teamOf(1), *r1m1.TeamAID)
	assert.Equal(t, teamOf(8), *r1m1.TeamBID)
	assert.Equal(t, models.SeedSource(8), r1m1.SourceB)
	assert.Equal(t, models.MatchStatusReady, r1m1.Status)

	semi := matchByCode(t, plan.Matches, "SE-R2-M1")
	assert.Equal(t, models.WinnerOf(r1m1.ID), semi.SourceA)
	assert.Equal(t, models.MatchStatusPending, semi.Status)
	require.NotNil(t, r1m1.WinnerAdvancesTo)
	assert.Equal(t, semi.ID, *r1m1.WinnerAdvancesTo)
	assert.Nil(t, r1m1.LoserAdvancesTo)

	final := matchByCode(t, plan.Matches, "SE-R3-M1")
	assert.Equal(t, "Final", final.Label)
	assert.Equal(t, 5, final.BestOf)
	assert.Equal(t, 1, semi.BestOf)
	assert.Nil(t, final.WinnerAdvancesTo)
}

func TestSingleElimination_FiveTeams(t *testing.T) {
	plan := generatePlan(t, models.FormatSingleElimination, 5)

	round1 := make([]*models.Match, 0)
	for _, m := range plan.Matches {
		if m.Round == 1 {
			round1 = append(round1, m)
		}
	}
	require.Len(t, round1, 4)
	assert.Equal(t, 3, countWhere(round1, func(m *models.Match) bool { return m.IsBye }))

	var playable []*models.Match
	for _, m := range round1 {
		if m.Status == models.MatchStatusReady {
			playable = append(playable, m)
		}
	}
	require.Len(t, playable, 1)
	assert.Equal(t, teamOf(4), *playable[0].TeamAID)
	assert.Equal(t, teamOf(5), *playable[0].TeamBID)

	// Seeds 1, 2 and 3 advanced by walkover; 2 and 3 already meet in round 2.
	r2m1 := matchByCode(t, plan.Matches, "SE-R2-M1")
	assert.Equal(t, teamOf(1), *r2m1.TeamAID)
	assert.Nil(t, r2m1.TeamBID)
	assert.Equal(t, models.MatchStatusPending, r2m1.Status)

	r2m2 := matchByCode(t, plan.Matches, "SE-R2-M2")
	assert.Equal(t, teamOf(2), *r2m2.TeamAID)
	assert.Equal(t, teamOf(3), *r2m2.TeamBID)
	assert.Equal(t, models.MatchStatusReady, r2m2.Status)
}

func TestSingleElimination_Properties(t *testing.T) {
	for n := 2; n <= 33; n++ {
		plan := generatePlan(t, models.FormatSingleElimination, n)
		g := newTestGraph(plan)

		assert.Len(t, plan.Matches, NextPowerOfTwo(n)-1, "n=%d", n)
		assert.Equal(t, ByeCount(n), countWhere(plan.Matches, func(m *models.Match) bool { return m.IsBye }), "n=%d", n)

		for _, m := range plan.Matches {
			if m.IsBye {
				require.NotNil(t, m.WinnerID)
				assert.LessOrEqual(t, *m.WinnerID, teamOf(ByeCount(n)), "n=%d: bye went to a low seed", n)
			}
		}

		var final *models.Match
		playOut(t, g, higherSeedWins, func() {
			for _, m := range g.Matches() {
				if m.IsBye {
					assert.Equal(t, models.MatchStatusCompleted, m.Status)
				}
			}
		})
		for _, m := range g.Matches() {
			assert.Equal(t, models.MatchStatusCompleted, m.Status, "n=%d %s", n, m.Code)
			if m.WinnerAdvancesTo == nil {
				final = m
				continue
			}
			if !m.IsBye {
				assert.False(t, m.HasTeam(teamOf(1)) && m.HasTeam(teamOf(2)), "n=%d: seeds 1 and 2 met in %s", n, m.Code)
			}
		}

		contested := countWhere(g.Matches(), func(m *models.Match) bool { return !m.IsBye })
		assert.Equal(t, n-1, contested, "n=%d", n)
		require.NotNil(t, final)
		assert.True(t, final.HasTeam(teamOf(1)), "n=%d", n)
		assert.True(t, final.HasTeam(teamOf(2)), "n=%d", n)
	}
}

func TestSingleElimination_DeterministicIDs(t *testing.T) {
	first := generatePlan(t, models.FormatSingleElimination, 6)
	second := generatePlan(t, models.FormatSingleElimination, 6)

	assert.Equal(t, first, second)
	assert.NotEqual(t, MatchID(7, stageKeyMain, 1, 1), MatchID(8, stageKeyMain, 1, 1))
}

func TestSingleElimination_Schedule(t *testing.T) {
	start := time.Date(2025, 4, 5, 18, 0, 0, 0, time.UTC)
	plan := generatePlan(t, models.FormatSingleElimination, 4, func(p *GenerateBracketParams) {
		p.StartAt = &start
		p.RoundInterval = 2 * time.Hour
	})

	r1 := matchByCode(t, plan.Matches, "SE-R1-M1")
	final := matchByCode(t, plan.Matches, "SE-R2-M1")
	require.NotNil(t, r1.ScheduledAt)
	assert.Equal(t, start, *r1.ScheduledAt)
	assert.Equal(t, start.Add(2*time.Hour), *final.ScheduledAt)
}

func TestSingleElimination_InsufficientTeams(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{Teams: makeTeams(1)})

	assert.ErrorIs(t, err, ErrInsufficientTeams)
	assert.Equal(t, "SingleElimination", gen.GetName())
}

func TestNewGenerator_UnknownFormat(t *testing.T) {
	_, err := NewGenerator(models.Format("ladder"))
	assert.Equal(t, KindInvalidGenerationRequest, KindOf(err))
}
