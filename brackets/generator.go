package brackets

import (
	"context"
	"fmt"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/google/uuid"
)

type GenerateBracketParams struct {
	TournamentID int
	// Teams sorted by seed, Seed set 1..N.
	Teams         []models.Team
	BestOf        int
	FinalsBestOf  int
	RoundRobin    models.RoundRobinSettings
	Swiss         models.SwissSettings
	StartAt       *time.Time
	RoundInterval time.Duration
	Now           time.Time
}

// Plan is the full set of stages and matches produced by one generation
// event, already settled by the bye resolver and ready to be inserted.
type Plan struct {
	Stages  []*models.Stage
	Matches []*models.Match
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) (*Plan, error)

	GetName() string
}

func NewGenerator(format models.Format) (BracketGenerator, error) {
	switch format {
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator(), nil
	case models.FormatDoubleElimination:
		return NewDoubleEliminationGenerator(), nil
	case models.FormatGSL:
		return NewGSLGenerator(), nil
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.FormatSwiss:
		return NewSwissGenerator(), nil
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidGenerationRequest, format)
}

const (
	stageKeyMain       = "main"
	stageKeyUpper      = "upper"
	stageKeyLower      = "lower"
	stageKeyGrandFinal = "grand_final"
	stageKeyRoundRobin = "round_robin"
	stageKeySwiss      = "swiss"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/Dosada05/bracket-engine"))

// StageID derives a stage id from the tournament and the stage key.
func StageID(tournamentID int, stageKey string) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d/%s", tournamentID, stageKey))).String()
}

// MatchID derives a match id from (tournament, stage, round, position), so
// regenerating a bracket reproduces the same ids.
func MatchID(tournamentID int, stageKey string, round, position int) string {
	return uuid.NewSHA1(idNamespace, []byte(fmt.Sprintf("%d/%s/%d/%d", tournamentID, stageKey, round, position))).String()
}

type Slot int

const (
	SlotA Slot = iota
	SlotB
)

type planBuilder struct {
	params    GenerateBracketParams
	plan      *Plan
	stageKeys map[string]string
}

func newPlanBuilder(params GenerateBracketParams) *planBuilder {
	if params.Now.IsZero() {
		params.Now = time.Now().UTC()
	}
	if params.BestOf <= 0 {
		params.BestOf = 1
	}
	if params.FinalsBestOf <= 0 {
		params.FinalsBestOf = params.BestOf
	}
	return &planBuilder{
		params:    params,
		plan:      &Plan{},
		stageKeys: make(map[string]string),
	}
}

func (b *planBuilder) addStage(key, name string, typ models.StageType, format models.Format, bestOf int) *models.Stage {
	s := &models.Stage{
		ID:           StageID(b.params.TournamentID, key),
		TournamentID: b.params.TournamentID,
		Name:         name,
		Type:         typ,
		Format:       format,
		Order:        len(b.plan.Stages) + 1,
		BestOf:       bestOf,
		CreatedAt:    b.params.Now,
	}
	b.stageKeys[s.ID] = key
	b.plan.Stages = append(b.plan.Stages, s)
	return s
}

func (b *planBuilder) addMatch(stage *models.Stage, prefix string, round, position int) *models.Match {
	m := &models.Match{
		ID:           MatchID(b.params.TournamentID, b.stageKeys[stage.ID], round, position),
		TournamentID: b.params.TournamentID,
		StageID:      stage.ID,
		Code:         fmt.Sprintf("%s-R%d-M%d", prefix, round, position),
		Round:        round,
		Position:     position,
		Status:       models.MatchStatusPending,
		BestOf:       stage.BestOf,
		ScheduledAt:  b.scheduleFor(round),
		Version:      1,
		UpdatedAt:    b.params.Now,
	}
	if round > stage.Rounds {
		stage.Rounds = round
	}
	b.plan.Matches = append(b.plan.Matches, m)
	return m
}

func (b *planBuilder) scheduleFor(round int) *time.Time {
	if b.params.StartAt == nil {
		return nil
	}
	t := b.params.StartAt.Add(time.Duration(round-1) * b.params.RoundInterval)
	return &t
}

// seed fills a first-round slot. A nil team marks the slot vacant (a bye).
func seed(m *models.Match, slot Slot, seedNumber int, team *models.Team) {
	var id *int
	if team != nil {
		v := team.ID
		id = &v
	}
	if slot == SlotA {
		m.SourceA = models.SeedSource(seedNumber)
		m.TeamAID = id
		m.VacantA = id == nil
		return
	}
	m.SourceB = models.SeedSource(seedNumber)
	m.TeamBID = id
	m.VacantB = id == nil
}

func linkWinner(from, to *models.Match, slot Slot) {
	id := to.ID
	from.WinnerAdvancesTo = &id
	setSource(to, slot, models.WinnerOf(from.ID))
}

func linkLoser(from, to *models.Match, slot Slot) {
	id := to.ID
	from.LoserAdvancesTo = &id
	setSource(to, slot, models.LoserOf(from.ID))
}

func setSource(m *models.Match, slot Slot, src models.SlotSource) {
	if slot == SlotA {
		m.SourceA = src
	} else {
		m.SourceB = src
	}
}

// buildTree lays out a knockout tree from first-round pairings and returns
// its rounds; rounds[k][p] feeds rounds[k+1][p/2].
func (b *planBuilder) buildTree(stage *models.Stage, prefix string, pairings []Pairing) [][]*models.Match {
	first := make([]*models.Match, 0, len(pairings))
	for _, p := range pairings {
		m := b.addMatch(stage, prefix, 1, p.Position)
		seed(m, SlotA, p.SeedA, p.TeamA)
		seed(m, SlotB, p.SeedB, p.TeamB)
		first = append(first, m)
	}

	rounds := [][]*models.Match{first}
	for prev := first; len(prev) > 1; {
		next := make([]*models.Match, 0, len(prev)/2)
		for i := 0; i < len(prev); i += 2 {
			m := b.addMatch(stage, prefix, len(rounds)+1, i/2+1)
			linkWinner(prev[i], m, SlotA)
			linkWinner(prev[i+1], m, SlotB)
			next = append(next, m)
		}
		rounds = append(rounds, next)
		prev = next
	}
	return rounds
}

// finish runs the bye resolver over the plan before it is handed out.
func (b *planBuilder) finish() (*Plan, error) {
	if err := ResolveByes(NewGraph(b.plan.Matches, func() time.Time { return b.params.Now })); err != nil {
		return nil, err
	}
	return b.plan, nil
}

func requireTeams(params GenerateBracketParams, min int) error {
	if len(params.Teams) < min {
		return fmt.Errorf("%w: found %d, minimum %d", ErrInsufficientTeams, len(params.Teams), min)
	}
	return nil
}
