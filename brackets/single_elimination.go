package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket builds the full knockout tree: round 1 from the standard
// seed pairings, later rounds as placeholders fed by winner_of sources.
// Byes are resolved before the plan is returned.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error) {
	if err := requireTeams(params, 2); err != nil {
		return nil, err
	}

	b := newPlanBuilder(params)
	stage := b.addStage(stageKeyMain, "Main Bracket", models.StageSingleElimination, models.FormatSingleElimination, b.params.BestOf)
	rounds := b.buildTree(stage, "SE", FirstRoundPairings(params.Teams))

	final := rounds[len(rounds)-1][0]
	final.Label = "Final"
	final.BestOf = b.params.FinalsBestOf
	if len(rounds) > 1 {
		for i, m := range rounds[len(rounds)-2] {
			m.Label = semifinalLabel(i + 1)
		}
	}

	return b.finish()
}

func semifinalLabel(n int) string {
	if n == 1 {
		return "Semifinal 1"
	}
	return "Semifinal 2"
}
