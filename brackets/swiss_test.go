package brackets

import (
	"testing"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendedSwissRounds(t *testing.T) {
	assert.Equal(t, 1, RecommendedSwissRounds(2))
	assert.Equal(t, 3, RecommendedSwissRounds(4))
	assert.Equal(t, 4, RecommendedSwissRounds(5))
	assert.Equal(t, 4, RecommendedSwissRounds(8))
	assert.Equal(t, 5, RecommendedSwissRounds(16))
}

func TestSwiss_FirstRoundFold(t *testing.T) {
	plan := generatePlan(t, models.FormatSwiss, 8)

	require.Len(t, plan.Matches, 4)
	assert.Equal(t, 4, plan.Stages[0].Rounds)
	for i, m := range plan.Matches {
		assert.Equal(t, teamOf(i+1), *m.TeamAID)
		assert.Equal(t, teamOf(i+5), *m.TeamBID)
		assert.Equal(t, models.MatchStatusReady, m.Status)
	}
}

func TestSwiss_OddFieldGivesLowestSeedTheBye(t *testing.T) {
	plan := generatePlan(t, models.FormatSwiss, 5)

	require.Len(t, plan.Matches, 3)
	bye := matchByCode(t, plan.Matches, "SW-R1-M3")
	assert.True(t, bye.IsBye)
	assert.Equal(t, models.MatchStatusCompleted, bye.Status)
	assert.Equal(t, teamOf(5), *bye.WinnerID)

	g := newTestGraph(plan)
	playOut(t, g, slotAWins, nil)

	next, err := NextSwissRound(plan.Stages[0], g.Matches(), testNow)
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, []int{teamOf(1), teamOf(2)}, []int{*next[0].TeamAID, *next[0].TeamBID})
	assert.Equal(t, []int{teamOf(5), teamOf(3)}, []int{*next[1].TeamAID, *next[1].TeamBID})
	assert.True(t, next[2].IsBye)
	assert.Equal(t, teamOf(4), *next[2].WinnerID, "the bye goes to the lowest ranked team without one")
}

func TestSwiss_NextRoundRequiresFinishedRound(t *testing.T) {
	plan := generatePlan(t, models.FormatSwiss, 4)

	_, err := NextSwissRound(plan.Stages[0], plan.Matches, testNow)

	assert.Equal(t, KindInvalidMatchState, KindOf(err))
}

func TestSwiss_NoRematches(t *testing.T) {
	plan := generatePlan(t, models.FormatSwiss, 8)
	stage := plan.Stages[0]
	matches := plan.Matches

	for round := 1; round < stage.Rounds; round++ {
		g := newTestGraph(&Plan{Matches: matches})
		playOut(t, g, higherSeedWins, nil)

		next, err := NextSwissRound(stage, g.Matches(), testNow)
		require.NoError(t, err)
		require.Len(t, next, 4)
		for _, m := range next {
			assert.Equal(t, round+1, m.Round)
		}
		matches = append(g.Matches(), next...)
	}

	met := make(map[[2]int]bool)
	for _, m := range matches {
		lo, hi := *m.TeamAID, *m.TeamBID
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.False(t, met[[2]int{lo, hi}], "rematch %d vs %d", lo, hi)
		met[[2]int{lo, hi}] = true
	}

	g := newTestGraph(&Plan{Matches: matches})
	playOut(t, g, higherSeedWins, nil)
	_, err := NextSwissRound(stage, g.Matches(), testNow)
	assert.Equal(t, KindInvalidGenerationRequest, KindOf(err))

	standings := ComputeStandings(BuildView(7, plan.Stages, g.Matches()))
	assert.True(t, standings.Complete)
	assert.Equal(t, teamOf(1), standings.Table[0].TeamID)
	assert.Equal(t, 4, standings.Table[0].Wins)
}
