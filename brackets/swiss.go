package brackets

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/Dosada05/bracket-engine/models"
)

type SwissGenerator struct{}

func NewSwissGenerator() BracketGenerator {
	return &SwissGenerator{}
}

func (g *SwissGenerator) GetName() string {
	return "Swiss"
}

// RecommendedSwissRounds is min(ceil(log2 n)+1, n-1).
func RecommendedSwissRounds(n int) int {
	if n < 2 {
		return 0
	}
	r := bits.Len(uint(n-1)) + 1
	if r > n-1 {
		r = n - 1
	}
	return r
}

// GenerateBracket creates the swiss stage and its first round only. Later
// rounds depend on results and are added by NextSwissRound.
func (g *SwissGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error) {
	if err := requireTeams(params, 2); err != nil {
		return nil, err
	}
	n := len(params.Teams)
	rounds := params.Swiss.Rounds
	if rounds == 0 {
		rounds = RecommendedSwissRounds(n)
	}
	if rounds < 1 || rounds > n-1 {
		return nil, fmt.Errorf("%w: swiss rounds must be between 1 and %d, got %d", ErrInvalidGenerationRequest, n-1, rounds)
	}

	b := newPlanBuilder(params)
	stage := b.addStage(stageKeySwiss, "Swiss Stage", models.StageSwiss, models.FormatSwiss, b.params.BestOf)

	pool := params.Teams
	var bye *models.Team
	if n%2 == 1 {
		bye = &params.Teams[n-1]
		pool = params.Teams[:n-1]
	}
	half := len(pool) / 2
	for i := 0; i < half; i++ {
		m := b.addMatch(stage, "SW", 1, i+1)
		seed(m, SlotA, pool[i].Seed, &pool[i])
		seed(m, SlotB, pool[i+half].Seed, &pool[i+half])
	}
	if bye != nil {
		b.addByeMatch(stage, 1, half+1, *bye)
	}
	stage.Rounds = rounds

	return b.finish()
}

func (b *planBuilder) addByeMatch(stage *models.Stage, round, position int, team models.Team) *models.Match {
	m := b.addMatch(stage, "SW", round, position)
	seed(m, SlotA, team.Seed, &team)
	m.VacantB = true
	return m
}

type swissEntry struct {
	teamID int
	seed   int
	wins   int
	hadBye bool
	met    map[int]bool
}

// NextSwissRound pairs the next round of a swiss stage from the results so
// far. Every match of the latest round must be finished. The returned matches
// are settled (the bye, if any, is already a completed walkover).
func NextSwissRound(stage *models.Stage, matches []*models.Match, now time.Time) ([]*models.Match, error) {
	if stage.Type != models.StageSwiss {
		return nil, fmt.Errorf("%w: stage %s is not a swiss stage", ErrInvalidGenerationRequest, stage.Name)
	}

	latest := 0
	for _, m := range matches {
		if m.StageID != stage.ID {
			continue
		}
		if m.Round > latest {
			latest = m.Round
		}
	}
	if latest == 0 {
		return nil, fmt.Errorf("%w: swiss stage has no rounds", ErrBracketNotFound)
	}
	if latest >= stage.Rounds {
		return nil, fmt.Errorf("%w: all %d swiss rounds already generated", ErrInvalidGenerationRequest, stage.Rounds)
	}

	entries := make(map[int]*swissEntry)
	entry := func(teamID, seed int) *swissEntry {
		e, ok := entries[teamID]
		if !ok {
			e = &swissEntry{teamID: teamID, seed: seed, met: make(map[int]bool)}
			entries[teamID] = e
		}
		return e
	}
	for _, m := range matches {
		if m.StageID != stage.ID {
			continue
		}
		if m.Round == latest && m.Status != models.MatchStatusCompleted && m.Status != models.MatchStatusCancelled {
			return nil, fmt.Errorf("%w: swiss round %d is not finished (%s is %s)", ErrInvalidMatchState, latest, m.Code, m.Status)
		}
		var a, bb *swissEntry
		if m.TeamAID != nil {
			a = entry(*m.TeamAID, m.SourceA.Seed)
		}
		if m.TeamBID != nil {
			bb = entry(*m.TeamBID, m.SourceB.Seed)
		}
		if a != nil && bb != nil {
			a.met[bb.teamID] = true
			bb.met[a.teamID] = true
		}
		if m.IsBye && a != nil {
			a.hadBye = true
		}
		if m.WinnerID != nil {
			entries[*m.WinnerID].wins++
		}
	}

	ranked := make([]*swissEntry, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].wins != ranked[j].wins {
			return ranked[i].wins > ranked[j].wins
		}
		return ranked[i].seed < ranked[j].seed
	})

	var byeEntry *swissEntry
	if len(ranked)%2 == 1 {
		idx := len(ranked) - 1
		for i := len(ranked) - 1; i >= 0; i-- {
			if !ranked[i].hadBye {
				idx = i
				break
			}
		}
		byeEntry = ranked[idx]
		ranked = append(ranked[:idx:idx], ranked[idx+1:]...)
	}

	pairs, ok := pairAvoidingRematches(ranked)
	if !ok {
		pairs = pairInOrder(ranked)
	}

	b := newPlanBuilder(GenerateBracketParams{
		TournamentID: stage.TournamentID,
		BestOf:       stage.BestOf,
		Now:          now,
	})
	b.stageKeys[stage.ID] = stageKeySwiss
	round := latest + 1
	for i, p := range pairs {
		m := b.addMatch(stage, "SW", round, i+1)
		seed(m, SlotA, p[0].seed, &models.Team{ID: p[0].teamID, Seed: p[0].seed})
		seed(m, SlotB, p[1].seed, &models.Team{ID: p[1].teamID, Seed: p[1].seed})
	}
	if byeEntry != nil {
		b.addByeMatch(stage, round, len(pairs)+1, models.Team{ID: byeEntry.teamID, Seed: byeEntry.seed})
	}

	plan, err := b.finish()
	if err != nil {
		return nil, err
	}
	return plan.Matches, nil
}

// pairAvoidingRematches walks the ranking top-down, giving each team the
// highest-ranked opponent it has not met, and backtracks when the tail of
// the ranking can no longer be paired.
func pairAvoidingRematches(ranked []*swissEntry) ([][2]*swissEntry, bool) {
	if len(ranked) == 0 {
		return nil, true
	}
	top := ranked[0]
	for i := 1; i < len(ranked); i++ {
		opp := ranked[i]
		if top.met[opp.teamID] {
			continue
		}
		rest := make([]*swissEntry, 0, len(ranked)-2)
		rest = append(rest, ranked[1:i]...)
		rest = append(rest, ranked[i+1:]...)
		if tail, ok := pairAvoidingRematches(rest); ok {
			return append([][2]*swissEntry{{top, opp}}, tail...), true
		}
	}
	return nil, false
}

func pairInOrder(ranked []*swissEntry) [][2]*swissEntry {
	pairs := make([][2]*swissEntry, 0, len(ranked)/2)
	for i := 0; i+1 < len(ranked); i += 2 {
		pairs = append(pairs, [2]*swissEntry{ranked[i], ranked[i+1]})
	}
	return pairs
}
