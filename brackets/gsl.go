package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

const gslGroupSize = 4

type GSLGenerator struct{}

func NewGSLGenerator() BracketGenerator {
	return &GSLGenerator{}
}

func (g *GSLGenerator) GetName() string {
	return "GSL"
}

// GenerateBracket splits the field into groups of four (snake order by seed)
// and builds the five-match GSL layout in each group. Two teams qualify per
// group: the winners-match winner and the decider winner.
func (g *GSLGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error) {
	if err := requireTeams(params, gslGroupSize); err != nil {
		return nil, err
	}
	if len(params.Teams)%gslGroupSize != 0 {
		return nil, fmt.Errorf("%w: GSL groups need a multiple of %d teams, got %d",
			ErrInvalidGenerationRequest, gslGroupSize, len(params.Teams))
	}

	b := newPlanBuilder(params)
	for i, group := range SnakeGroups(params.Teams, len(params.Teams)/gslGroupSize) {
		letter := string(rune('A' + i))
		stage := b.addStage("group_"+letter, "Group "+letter, models.StageGSLGroup, models.FormatGSL, b.params.BestOf)
		b.buildGSLGroup(stage, "G"+letter, group)
	}

	return b.finish()
}

// SnakeGroups distributes seeded teams into groups pot by pot, reversing the
// direction on every other pot: with 2 groups, A gets seeds 1,4,5,8 and B
// gets 2,3,6,7.
func SnakeGroups(seeded []models.Team, groups int) [][]models.Team {
	out := make([][]models.Team, groups)
	for i, t := range seeded {
		pot, idx := i/groups, i%groups
		if pot%2 == 1 {
			idx = groups - 1 - idx
		}
		out[idx] = append(out[idx], t)
	}
	return out
}

func (b *planBuilder) buildGSLGroup(stage *models.Stage, prefix string, group []models.Team) {
	openingA := b.addMatch(stage, prefix, 1, 1)
	openingA.Label = "Opening Match A"
	seed(openingA, SlotA, group[0].Seed, &group[0])
	seed(openingA, SlotB, group[3].Seed, &group[3])

	openingB := b.addMatch(stage, prefix, 1, 2)
	openingB.Label = "Opening Match B"
	seed(openingB, SlotA, group[1].Seed, &group[1])
	seed(openingB, SlotB, group[2].Seed, &group[2])

	winners := b.addMatch(stage, prefix, 2, 1)
	winners.Label = "Winners Match"
	elimination := b.addMatch(stage, prefix, 2, 2)
	elimination.Label = "Elimination Match"
	decider := b.addMatch(stage, prefix, 3, 1)
	decider.Label = "Decider Match"

	linkWinner(openingA, winners, SlotA)
	linkWinner(openingB, winners, SlotB)
	linkLoser(openingA, elimination, SlotA)
	linkLoser(openingB, elimination, SlotB)
	linkLoser(winners, decider, SlotA)
	linkWinner(elimination, decider, SlotB)
}
