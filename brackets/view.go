package brackets

import (
	"fmt"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

type RoundView struct {
	Number  int             `json:"number"`
	Name    string          `json:"name"`
	Matches []*models.Match `json:"matches"`
}

type StageView struct {
	Stage  *models.Stage `json:"stage"`
	Rounds []RoundView   `json:"rounds"`
}

// View is the read model of a bracket: stages in order, their rounds, and a
// flat match list ordered by (stage, round, position).
type View struct {
	TournamentID int             `json:"tournament_id"`
	Stages       []StageView     `json:"stages"`
	Matches      []*models.Match `json:"matches"`

	byID map[string]*models.Match
}

func BuildView(tournamentID int, stages []*models.Stage, matches []*models.Match) *View {
	sorted := make([]*models.Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	byStage := make(map[string][]*models.Match, len(sorted))
	for _, m := range matches {
		byStage[m.StageID] = append(byStage[m.StageID], m)
	}

	v := &View{
		TournamentID: tournamentID,
		Stages:       make([]StageView, 0, len(sorted)),
		Matches:      make([]*models.Match, 0, len(matches)),
		byID:         make(map[string]*models.Match, len(matches)),
	}
	for _, s := range sorted {
		ms := byStage[s.ID]
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].Round != ms[j].Round {
				return ms[i].Round < ms[j].Round
			}
			return ms[i].Position < ms[j].Position
		})

		sv := StageView{Stage: s}
		last := 0
		if len(ms) > 0 {
			last = ms[len(ms)-1].Round
		}
		for _, m := range ms {
			if n := len(sv.Rounds); n == 0 || sv.Rounds[n-1].Number != m.Round {
				sv.Rounds = append(sv.Rounds, RoundView{Number: m.Round, Name: RoundName(s.Type, m.Round, last)})
			}
			r := &sv.Rounds[len(sv.Rounds)-1]
			r.Matches = append(r.Matches, m)
			v.Matches = append(v.Matches, m)
			v.byID[m.ID] = m
		}
		v.Stages = append(v.Stages, sv)
	}
	return v
}

func (v *View) Match(id string) (*models.Match, bool) {
	m, ok := v.byID[id]
	return m, ok
}

// StagesOfType returns the stage views of the given type in order.
func (v *View) StagesOfType(types ...models.StageType) []StageView {
	var out []StageView
	for _, sv := range v.Stages {
		for _, t := range types {
			if sv.Stage.Type == t {
				out = append(out, sv)
				break
			}
		}
	}
	return out
}

// RoundName returns the display name of a round given the last round
// currently present in the stage.
func RoundName(typ models.StageType, round, last int) string {
	fromEnd := last - round
	switch typ {
	case models.StageSingleElimination:
		switch fromEnd {
		case 0:
			return "Final"
		case 1:
			return "Semifinals"
		case 2:
			return "Quarterfinals"
		}
		return fmt.Sprintf("Round of %d", 1<<(fromEnd+1))
	case models.StageUpperBracket:
		switch fromEnd {
		case 0:
			return "Upper Final"
		case 1:
			return "Upper Semifinals"
		}
		return fmt.Sprintf("Upper Round %d", round)
	case models.StageLowerBracket:
		if fromEnd == 0 {
			return "Lower Final"
		}
		return fmt.Sprintf("Lower Round %d", round)
	case models.StageGrandFinal:
		if round == 2 {
			return "Grand Final Reset"
		}
		return "Grand Final"
	case models.StageGSLGroup:
		switch round {
		case 1:
			return "Opening Matches"
		case 2:
			return "Winners and Elimination Matches"
		}
		return "Decider Match"
	}
	return fmt.Sprintf("Round %d", round)
}
