package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket creates matches for a round-robin tournament using the
// circle method, so every team plays at most once per round.
// For a single round-robin, each participant plays every other participant once.
// For a double round-robin, they play each other twice with sides swapped.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error) {
	if err := requireTeams(params, 2); err != nil {
		return nil, err
	}

	legs := params.RoundRobin.Legs
	if legs == 0 {
		legs = 1
	}
	if legs != 1 && legs != 2 {
		return nil, fmt.Errorf("%w: round robin legs must be 1 or 2, got %d", ErrInvalidGenerationRequest, legs)
	}

	b := newPlanBuilder(params)
	stage := b.addStage(stageKeyRoundRobin, "League", models.StageRoundRobin, models.FormatRoundRobin, b.params.BestOf)

	schedule := CircleSchedule(len(params.Teams))
	for leg := 0; leg < legs; leg++ {
		for r, pairs := range schedule {
			round := leg*len(schedule) + r + 1
			for i, pair := range pairs {
				a, bb := pair[0], pair[1]
				if leg == 1 {
					a, bb = bb, a
				}
				m := b.addMatch(stage, "RR", round, i+1)
				seed(m, SlotA, a, &params.Teams[a-1])
				seed(m, SlotB, bb, &params.Teams[bb-1])
			}
		}
	}

	return b.finish()
}

// CircleSchedule returns, per round, the seed pairs of a single round robin
// over n teams. Seed 1 stays fixed while the others rotate; with an odd n a
// phantom slot sits out each round and its pairing is dropped.
func CircleSchedule(n int) [][][2]int {
	ring := make([]int, 0, n+1)
	for s := 1; s <= n; s++ {
		ring = append(ring, s)
	}
	if n%2 == 1 {
		ring = append(ring, 0)
	}

	size := len(ring)
	rounds := make([][][2]int, 0, size-1)
	for r := 0; r < size-1; r++ {
		pairs := make([][2]int, 0, size/2)
		for i := 0; i < size/2; i++ {
			a, b := ring[i], ring[size-1-i]
			if a == 0 || b == 0 {
				continue
			}
			// Alternate sides for the fixed seed so it is not always slot A.
			if i == 0 && r%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, [2]int{a, b})
		}
		rounds = append(rounds, pairs)

		last := ring[size-1]
		copy(ring[2:], ring[1:size-1])
		ring[1] = last
	}
	return rounds
}
