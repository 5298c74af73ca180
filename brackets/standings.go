package brackets

import (
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

type Standings struct {
	TournamentID int                  `json:"tournament_id"`
	Champion     *int                 `json:"champion_team_id"`
	Placements   []models.Placement   `json:"placements,omitempty"`
	Groups       []models.GroupResult `json:"groups,omitempty"`
	Table        []models.TeamRecord  `json:"table,omitempty"`
	Complete     bool                 `json:"complete"`
}

// ComputeStandings projects results onto the view's stages: placement ranges
// for knockout stages, qualifiers per GSL group, and a records table for
// round robin and swiss.
func ComputeStandings(v *View) *Standings {
	s := &Standings{TournamentID: v.TournamentID}

	if knockout := v.StagesOfType(models.StageSingleElimination, models.StageUpperBracket,
		models.StageLowerBracket, models.StageGrandFinal); len(knockout) > 0 {
		s.Champion, s.Placements = eliminationPlacements(knockout)
		s.Complete = s.Champion != nil
	}

	if groups := v.StagesOfType(models.StageGSLGroup); len(groups) > 0 {
		s.Complete = true
		for _, sv := range groups {
			g := gslGroupResult(sv)
			s.Complete = s.Complete && g.Complete
			s.Groups = append(s.Groups, g)
		}
	}

	if tables := v.StagesOfType(models.StageRoundRobin, models.StageSwiss); len(tables) > 0 {
		s.Table, s.Complete = recordsTable(tables)
		if s.Complete && len(s.Table) > 0 {
			s.Champion = &s.Table[0].TeamID
		}
	}
	return s
}

// spawnedReset reports whether a completed grand final was won from slot B,
// which means its loser has a second chance in the reset.
func spawnedReset(m *models.Match) bool {
	return m.AllowsReset && m.WinnerID != nil && m.TeamBID != nil && *m.WinnerID == *m.TeamBID
}

type eliminationGroup struct {
	stageOrder int
	round      int
	stageName  string
	teams      []int
}

func eliminationPlacements(stages []StageView) (*int, []models.Placement) {
	teams := make(map[int]bool)
	groups := make(map[[2]int]*eliminationGroup)
	var champion *int

	for _, sv := range stages {
		for _, r := range sv.Rounds {
			for _, m := range r.Matches {
				for _, id := range []*int{m.TeamAID, m.TeamBID} {
					if id != nil {
						teams[*id] = true
					}
				}
				if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
					continue
				}
				if m.WinnerAdvancesTo == nil && !spawnedReset(m) {
					champion = cloneInt(m.WinnerID)
				}
				if m.LoserID == nil || m.LoserAdvancesTo != nil || spawnedReset(m) {
					continue
				}
				key := [2]int{sv.Stage.Order, m.Round}
				g, ok := groups[key]
				if !ok {
					g = &eliminationGroup{stageOrder: sv.Stage.Order, round: m.Round, stageName: sv.Stage.Name}
					groups[key] = g
				}
				g.teams = append(g.teams, *m.LoserID)
			}
		}
	}

	ordered := make([]*eliminationGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].stageOrder != ordered[j].stageOrder {
			return ordered[i].stageOrder < ordered[j].stageOrder
		}
		return ordered[i].round < ordered[j].round
	})

	// Losing the grand final ranks above anything decided in the lower
	// bracket, and lower bracket rounds rank by how late they were lost, so
	// sorting by (stage order, round) is elimination order for every format.
	n := len(teams)
	eliminated := 0
	var placements []models.Placement
	for _, g := range ordered {
		sort.Ints(g.teams)
		to := n - eliminated
		eliminated += len(g.teams)
		from := n - eliminated + 1
		for _, id := range g.teams {
			placements = append(placements, models.Placement{
				TeamID:    id,
				PlaceFrom: from,
				PlaceTo:   to,
				Stage:     g.stageName,
				Round:     g.round,
			})
		}
	}
	if champion != nil {
		placements = append(placements, models.Placement{TeamID: *champion, PlaceFrom: 1, PlaceTo: 1})
	}
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].PlaceFrom < placements[j].PlaceFrom
	})
	return champion, placements
}

func gslGroupResult(sv StageView) models.GroupResult {
	g := models.GroupResult{StageID: sv.Stage.ID, Name: sv.Stage.Name}
	for _, r := range sv.Rounds {
		for _, m := range r.Matches {
			if m.Status != models.MatchStatusCompleted || m.WinnerID == nil {
				continue
			}
			switch {
			case m.Round == 2 && m.Position == 1:
				g.Qualifiers = append(g.Qualifiers, *m.WinnerID)
			case m.Round == 2 && m.Position == 2:
				g.Eliminated = append(g.Eliminated, *m.LoserID)
			case m.Round == 3:
				g.Qualifiers = append(g.Qualifiers, *m.WinnerID)
				g.Eliminated = append(g.Eliminated, *m.LoserID)
				g.Complete = true
			}
		}
	}
	return g
}

func recordsTable(stages []StageView) ([]models.TeamRecord, bool) {
	records := make(map[int]*models.TeamRecord)
	record := func(id, seed int) *models.TeamRecord {
		r, ok := records[id]
		if !ok {
			r = &models.TeamRecord{TeamID: id, Seed: seed}
			records[id] = r
		}
		return r
	}

	complete := true
	for _, sv := range stages {
		for _, rv := range sv.Rounds {
			for _, m := range rv.Matches {
				var a, b *models.TeamRecord
				if m.TeamAID != nil {
					a = record(*m.TeamAID, m.SourceA.Seed)
				}
				if m.TeamBID != nil {
					b = record(*m.TeamBID, m.SourceB.Seed)
				}
				switch m.Status {
				case models.MatchStatusCompleted:
				case models.MatchStatusCancelled:
					continue
				default:
					complete = false
					continue
				}
				if m.IsBye {
					if m.WinnerID != nil {
						w := records[*m.WinnerID]
						w.Byes++
						w.Wins++
					}
					continue
				}
				a.Played++
				b.Played++
				a.MapsWon += m.ScoreA
				a.MapsLost += m.ScoreB
				b.MapsWon += m.ScoreB
				b.MapsLost += m.ScoreA
				if *m.WinnerID == a.TeamID {
					a.Wins++
					b.Losses++
				} else {
					b.Wins++
					a.Losses++
				}
			}
		}
		if sv.Stage.Type == models.StageSwiss && len(sv.Rounds) < sv.Stage.Rounds {
			complete = false
		}
	}

	table := make([]models.TeamRecord, 0, len(records))
	for _, r := range records {
		r.MapDiff = r.MapsWon - r.MapsLost
		table = append(table, *r)
	}
	sort.Slice(table, func(i, j int) bool {
		if table[i].Wins != table[j].Wins {
			return table[i].Wins > table[j].Wins
		}
		if table[i].MapDiff != table[j].MapDiff {
			return table[i].MapDiff > table[j].MapDiff
		}
		return table[i].Seed < table[j].Seed
	})
	for i := range table {
		table[i].Rank = i + 1
	}
	return table, complete
}
