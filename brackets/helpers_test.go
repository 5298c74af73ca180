package brackets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// makeTeams returns n teams already seeded 1..n; team IDs are 100+seed.
func makeTeams(n int) []models.Team {
	teams := make([]models.Team, n)
	for i := range teams {
		teams[i] = models.Team{
			ID:     101 + i,
			Name:   fmt.Sprintf("Team %d", i+1),
			Rating: float64(2000 - 10*i),
			Seed:   i + 1,
		}
	}
	return teams
}

func teamOf(seed int) int {
	return 100 + seed
}

func ptr(v int) *int {
	return &v
}

func generatePlan(t *testing.T, format models.Format, n int, opts ...func(*GenerateBracketParams)) *Plan {
	t.Helper()
	gen, err := NewGenerator(format)
	require.NoError(t, err)

	params := GenerateBracketParams{
		TournamentID: 7,
		Teams:        makeTeams(n),
		BestOf:       1,
		Now:          testNow,
	}
	for _, opt := range opts {
		opt(&params)
	}
	plan, err := gen.GenerateBracket(context.Background(), params)
	require.NoError(t, err)
	return plan
}

func newTestGraph(plan *Plan) *Graph {
	return NewGraph(plan.Matches, func() time.Time { return testNow })
}

func matchByCode(t *testing.T, matches []*models.Match, code string) *models.Match {
	t.Helper()
	for _, m := range matches {
		if m.Code == code {
			return m
		}
	}
	t.Fatalf("no match with code %s", code)
	return nil
}

func winBy(m *models.Match, side Slot) Result {
	if side == SlotA {
		return Result{ScoreA: m.WinsNeeded()}
	}
	return Result{ScoreB: m.WinsNeeded()}
}

func higherSeedWins(m *models.Match) Slot {
	if *m.TeamAID < *m.TeamBID {
		return SlotA
	}
	return SlotB
}

func slotAWins(*models.Match) Slot {
	return SlotA
}

// playOut reports every ready match until none is left, calling check after
// each report.
func playOut(t *testing.T, g *Graph, pick func(*models.Match) Slot, check func()) {
	t.Helper()
	sm := NewStateMachine(g)
	for guard := 0; guard < 10000; guard++ {
		var next *models.Match
		for _, m := range g.Matches() {
			if m.Status == models.MatchStatusReady {
				next = m
				break
			}
		}
		if next == nil {
			return
		}
		_, err := sm.Report(next.ID, winBy(next, pick(next)))
		require.NoError(t, err)
		if check != nil {
			check()
		}
	}
	t.Fatal("bracket did not finish")
}

// losses counts real (non-walkover) defeats per team.
func losses(matches []*models.Match) map[int]int {
	out := make(map[int]int)
	for _, m := range matches {
		if m.Status == models.MatchStatusCompleted && !m.IsBye && m.LoserID != nil {
			out[*m.LoserID]++
		}
	}
	return out
}

func countWhere(matches []*models.Match, pred func(*models.Match) bool) int {
	n := 0
	for _, m := range matches {
		if pred(m) {
			n++
		}
	}
	return n
}
