package brackets

import (
	"context"

	"github.com/Dosada05/bracket-engine/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) GetName() string {
	return "DoubleElimination"
}

// GenerateBracket builds the upper bracket, the lower bracket and the grand
// final. For an upper bracket of k rounds the lower bracket has 2(k-1)
// rounds: round 1 takes the upper round 1 losers in pairs, every even round
// 2j drops the upper round j+1 losers into slot B (reversed on odd j so
// rematches are pushed apart), and every odd round after the first halves
// the field.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error) {
	if err := requireTeams(params, 2); err != nil {
		return nil, err
	}

	b := newPlanBuilder(params)
	upperStage := b.addStage(stageKeyUpper, "Upper Bracket", models.StageUpperBracket, models.FormatDoubleElimination, b.params.BestOf)
	upper := b.buildTree(upperStage, "UB", FirstRoundPairings(params.Teams))
	k := len(upper)

	upperFinal := upper[k-1][0]
	upperFinal.Label = "Upper Final"

	var lowerFinal *models.Match
	if k > 1 {
		lowerStage := b.addStage(stageKeyLower, "Lower Bracket", models.StageLowerBracket, models.FormatDoubleElimination, b.params.BestOf)
		lowerFinal = b.buildLowerBracket(lowerStage, upper)
		lowerFinal.Label = "Lower Final"
	}

	gfStage := b.addStage(stageKeyGrandFinal, "Grand Final", models.StageGrandFinal, models.FormatDoubleElimination, b.params.FinalsBestOf)
	gf := b.addMatch(gfStage, "GF", 1, 1)
	gf.Code = "GF-M1"
	gf.Label = "Grand Final"
	gf.AllowsReset = true

	linkWinner(upperFinal, gf, SlotA)
	if lowerFinal != nil {
		linkWinner(lowerFinal, gf, SlotB)
	} else {
		// Two teams: the upper final loser gets a second life in the grand final.
		linkLoser(upperFinal, gf, SlotB)
	}

	return b.finish()
}

func (b *planBuilder) buildLowerBracket(stage *models.Stage, upper [][]*models.Match) *models.Match {
	k := len(upper)

	prev := make([]*models.Match, 0, len(upper[0])/2)
	for i := 0; i < len(upper[0]); i += 2 {
		m := b.addMatch(stage, "LB", 1, i/2+1)
		linkLoser(upper[0][i], m, SlotA)
		linkLoser(upper[0][i+1], m, SlotB)
		prev = append(prev, m)
	}

	for j := 1; j <= k-1; j++ {
		drops := upper[j]
		dropRound := make([]*models.Match, 0, len(prev))
		for i, survivor := range prev {
			m := b.addMatch(stage, "LB", 2*j, i+1)
			linkWinner(survivor, m, SlotA)
			dropRound = append(dropRound, m)
		}
		for i, src := range drops {
			target := i
			if j%2 == 1 {
				target = len(dropRound) - 1 - i
			}
			linkLoser(src, dropRound[target], SlotB)
		}
		prev = dropRound
		if j == k-1 {
			break
		}

		next := make([]*models.Match, 0, len(prev)/2)
		for i := 0; i < len(prev); i += 2 {
			m := b.addMatch(stage, "LB", 2*j+1, i/2+1)
			linkWinner(prev[i], m, SlotA)
			linkWinner(prev[i+1], m, SlotB)
			next = append(next, m)
		}
		prev = next
	}
	return prev[0]
}

// resetMatchFor builds the bracket reset played when the lower finalist wins
// the grand final. Slot A keeps the upper finalist.
func resetMatchFor(gf *models.Match) *models.Match {
	return &models.Match{
		ID:           MatchID(gf.TournamentID, stageKeyGrandFinal, 2, 1),
		TournamentID: gf.TournamentID,
		StageID:      gf.StageID,
		Code:         "GF-M2",
		Label:        "Grand Final Reset",
		Round:        2,
		Position:     1,
		TeamAID:      cloneInt(gf.LoserID),
		TeamBID:      cloneInt(gf.WinnerID),
		SourceA:      models.LoserOf(gf.ID),
		SourceB:      models.WinnerOf(gf.ID),
		Status:       models.MatchStatusReady,
		BestOf:       gf.BestOf,
		Version:      1,
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
