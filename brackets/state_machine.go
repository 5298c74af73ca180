package brackets

import (
	"fmt"
	"sort"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/thoas/go-funk"
)

// Graph is an in-memory working set of a tournament's matches. Mutations made
// by the state machine are tracked so the caller can persist exactly the
// touched and created matches.
type Graph struct {
	byID    map[string]*models.Match
	order   []*models.Match
	touched map[string]bool
	created map[string]bool
	now     func() time.Time

	// changes of the operation in progress, in touch order
	changes []*models.Match
	changed map[string]bool
}

func NewGraph(matches []*models.Match, now func() time.Time) *Graph {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	g := &Graph{
		byID:    make(map[string]*models.Match, len(matches)),
		order:   make([]*models.Match, 0, len(matches)),
		touched: make(map[string]bool),
		created: make(map[string]bool),
		now:     now,
		changed: make(map[string]bool),
	}
	for _, m := range matches {
		g.byID[m.ID] = m
		g.order = append(g.order, m)
	}
	return g
}

func (g *Graph) Match(id string) (*models.Match, bool) {
	m, ok := g.byID[id]
	return m, ok
}

// Matches returns all matches in insertion order.
func (g *Graph) Matches() []*models.Match {
	return g.order
}

// Touched returns matches that existed before and were modified.
func (g *Graph) Touched() []*models.Match {
	var out []*models.Match
	for _, m := range g.order {
		if g.touched[m.ID] && !g.created[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// Created returns matches added to the graph after it was loaded.
func (g *Graph) Created() []*models.Match {
	var out []*models.Match
	for _, m := range g.order {
		if g.created[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

func (g *Graph) touch(m *models.Match) {
	m.UpdatedAt = g.now()
	g.touched[m.ID] = true
	if !g.changed[m.ID] {
		g.changed[m.ID] = true
		g.changes = append(g.changes, m)
	}
}

func (g *Graph) add(m *models.Match) {
	g.byID[m.ID] = m
	g.order = append(g.order, m)
	g.created[m.ID] = true
	g.touch(m)
}

// checkpoint is the state of a match and everything downstream of it
// before an operation started.
type checkpoint struct {
	saved   map[string]*models.Match
	touched map[string]bool
	size    int
}

// downstream returns id and every match reachable from it through
// advancement pointers.
func (g *Graph) downstream(id string) []*models.Match {
	var out []*models.Match
	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		m, ok := g.byID[cur]
		if !ok {
			continue
		}
		out = append(out, m)
		if m.WinnerAdvancesTo != nil {
			queue = append(queue, *m.WinnerAdvancesTo)
		}
		if m.LoserAdvancesTo != nil {
			queue = append(queue, *m.LoserAdvancesTo)
		}
	}
	return out
}

// Downstream returns the ids of the match and of every match its result can
// reach, sorted. Locking these rows serializes reports that share a target.
func (g *Graph) Downstream(id string) []string {
	ms := g.downstream(id)
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

func (g *Graph) checkpoint(m *models.Match) *checkpoint {
	cp := &checkpoint{
		saved:   make(map[string]*models.Match),
		touched: make(map[string]bool),
		size:    len(g.order),
	}
	for _, d := range g.downstream(m.ID) {
		cp.saved[d.ID] = d.Clone()
		cp.touched[d.ID] = g.touched[d.ID]
	}
	return cp
}

// restore undoes everything since cp was taken, keeping match pointers
// stable for callers holding them.
func (g *Graph) restore(cp *checkpoint) {
	for id, before := range cp.saved {
		*g.byID[id] = *before
		if cp.touched[id] {
			g.touched[id] = true
		} else {
			delete(g.touched, id)
		}
	}
	for _, m := range g.order[cp.size:] {
		delete(g.byID, m.ID)
		delete(g.created, m.ID)
		delete(g.touched, m.ID)
	}
	g.order = g.order[:cp.size]
	g.drain()
}

// drain returns the matches changed since the last call.
func (g *Graph) drain() []*models.Match {
	out := g.changes
	g.changes = nil
	g.changed = make(map[string]bool)
	return out
}

// Result is a reported match score. WinnerID is optional when the scores
// already decide the series.
type Result struct {
	ScoreA   int
	ScoreB   int
	WinnerID *int
}

// Outcome describes everything one state machine operation changed.
type Outcome struct {
	Match      *models.Match   `json:"match"`
	Updated    []*models.Match `json:"updated"`
	Created    []*models.Match `json:"created"`
	NewlyReady []*models.Match `json:"newly_ready"`
}

var (
	startableStatuses   = []models.MatchStatus{models.MatchStatusReady}
	reportableStatuses  = []models.MatchStatus{models.MatchStatusReady, models.MatchStatusLive}
	cancellableStatuses = []models.MatchStatus{models.MatchStatusPending, models.MatchStatusReady, models.MatchStatusLive}
)

// StateMachine drives match lifecycle transitions on a Graph:
//
//	pending -> ready -> live -> completed
//	pending|ready|live -> cancelled
//
// Completing a match writes its winner and loser into the slots that name it
// as their source and settles the targets.
type StateMachine struct {
	g       *Graph
	readied []*models.Match
}

func NewStateMachine(g *Graph) *StateMachine {
	return &StateMachine{g: g}
}

func (sm *StateMachine) lookup(id string) (*models.Match, error) {
	m, ok := sm.g.Match(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMatch, id)
	}
	return m, nil
}

func (sm *StateMachine) Start(id string) (*Outcome, error) {
	m, err := sm.lookup(id)
	if err != nil {
		return nil, err
	}
	if !funk.Contains(startableStatuses, m.Status) {
		return nil, fmt.Errorf("%w: cannot start %s while %s", ErrInvalidMatchState, m.Code, m.Status)
	}
	m.Status = models.MatchStatusLive
	sm.g.touch(m)
	return sm.outcome(m), nil
}

func (sm *StateMachine) Cancel(id string) (*Outcome, error) {
	m, err := sm.lookup(id)
	if err != nil {
		return nil, err
	}
	if !funk.Contains(cancellableStatuses, m.Status) {
		return nil, fmt.Errorf("%w: cannot cancel %s while %s", ErrInvalidMatchState, m.Code, m.Status)
	}
	m.Status = models.MatchStatusCancelled
	sm.g.touch(m)
	return sm.outcome(m), nil
}

// Report records a result. A score where neither side reached the wins
// needed for the series only updates the live score; a deciding score
// completes the match and advances both teams.
func (sm *StateMachine) Report(id string, r Result) (*Outcome, error) {
	m, err := sm.lookup(id)
	if err != nil {
		return nil, err
	}
	if !funk.Contains(reportableStatuses, m.Status) {
		return nil, fmt.Errorf("%w: cannot report %s while %s", ErrInvalidMatchState, m.Code, m.Status)
	}
	if m.TeamAID == nil || m.TeamBID == nil {
		return nil, fmt.Errorf("%w: %s has an empty slot", ErrInvalidMatchState, m.Code)
	}

	winnerSide, decided, err := validateResult(m, r)
	if err != nil {
		return nil, err
	}

	cp := sm.g.checkpoint(m)
	m.ScoreA, m.ScoreB = r.ScoreA, r.ScoreB
	if !decided {
		m.Status = models.MatchStatusLive
		sm.g.touch(m)
		return sm.outcome(m), nil
	}

	if err := sm.complete(m, winnerSide); err != nil {
		sm.abort(cp)
		return nil, err
	}
	if m.AllowsReset && winnerSide == SlotB {
		if err := sm.spawnReset(m); err != nil {
			sm.abort(cp)
			return nil, err
		}
	}
	return sm.outcome(m), nil
}

func (sm *StateMachine) abort(cp *checkpoint) {
	sm.g.restore(cp)
	sm.readied = nil
}

func validateResult(m *models.Match, r Result) (Slot, bool, error) {
	need := m.WinsNeeded()
	if r.ScoreA < 0 || r.ScoreB < 0 {
		return 0, false, fmt.Errorf("%w: scores cannot be negative", ErrInvalidResult)
	}
	if r.ScoreA > need || r.ScoreB > need || (r.ScoreA == need && r.ScoreB == need) {
		return 0, false, fmt.Errorf("%w: %d-%d is not a valid best-of-%d score", ErrInvalidResult, r.ScoreA, r.ScoreB, m.BestOf)
	}

	if r.WinnerID != nil {
		var side Slot
		switch *r.WinnerID {
		case *m.TeamAID:
			side = SlotA
		case *m.TeamBID:
			side = SlotB
		default:
			return 0, false, fmt.Errorf("%w: team %d is not playing %s", ErrInvalidResult, *r.WinnerID, m.Code)
		}
		if (side == SlotA && r.ScoreA < r.ScoreB) || (side == SlotB && r.ScoreB < r.ScoreA) {
			return 0, false, fmt.Errorf("%w: declared winner has the lower score", ErrInvalidResult)
		}
		return side, true, nil
	}

	if r.ScoreA == r.ScoreB {
		return 0, false, fmt.Errorf("%w: tied score %d-%d without a declared winner", ErrInvalidResult, r.ScoreA, r.ScoreB)
	}
	if r.ScoreA < need && r.ScoreB < need {
		return 0, false, nil
	}
	if r.ScoreA > r.ScoreB {
		return SlotA, true, nil
	}
	return SlotB, true, nil
}

func (sm *StateMachine) complete(m *models.Match, side Slot) error {
	winner, loser := m.TeamAID, m.TeamBID
	if side == SlotB {
		winner, loser = m.TeamBID, m.TeamAID
	}
	m.WinnerID = cloneInt(winner)
	m.LoserID = cloneInt(loser)
	m.Status = models.MatchStatusCompleted
	sm.g.touch(m)
	return sm.propagate(m)
}

func (sm *StateMachine) propagate(m *models.Match) error {
	if m.WinnerAdvancesTo != nil {
		if err := sm.deliver(*m.WinnerAdvancesTo, models.WinnerOf(m.ID), m.WinnerID); err != nil {
			return err
		}
	}
	if m.LoserAdvancesTo != nil {
		if err := sm.deliver(*m.LoserAdvancesTo, models.LoserOf(m.ID), m.LoserID); err != nil {
			return err
		}
	}
	return nil
}

// deliver writes team (or a vacancy when team is nil) into the slot of the
// target whose source descriptor equals src.
func (sm *StateMachine) deliver(targetID string, src models.SlotSource, team *int) error {
	t, ok := sm.g.Match(targetID)
	if !ok {
		return fmt.Errorf("%w: advancement target %s is missing", ErrUnknownMatch, targetID)
	}

	var slot **int
	var vacant *bool
	switch src {
	case t.SourceA:
		slot, vacant = &t.TeamAID, &t.VacantA
	case t.SourceB:
		slot, vacant = &t.TeamBID, &t.VacantB
	default:
		return fmt.Errorf("%w: %s has no slot fed by %s", ErrInvalidMatchState, t.Code, src)
	}
	if *slot != nil || *vacant {
		return fmt.Errorf("%w: slot of %s fed by %s is already filled", ErrInvalidMatchState, t.Code, src)
	}

	if team == nil {
		*vacant = true
	} else {
		*slot = cloneInt(team)
	}
	sm.g.touch(t)
	return sm.settle(t)
}

// settle moves a pending match forward once its slots are determined: two
// teams make it ready, a team facing a vacancy wins by walkover, and two
// vacancies void it. Anything other than pending is left alone.
func (sm *StateMachine) settle(m *models.Match) error {
	if m.Status != models.MatchStatusPending {
		return nil
	}
	hasA, hasB := m.TeamAID != nil, m.TeamBID != nil
	switch {
	case hasA && hasB:
		m.Status = models.MatchStatusReady
		sm.g.touch(m)
		sm.readied = append(sm.readied, m)
	case hasA && m.VacantB:
		return sm.walkover(m, SlotA)
	case hasB && m.VacantA:
		return sm.walkover(m, SlotB)
	case m.VacantA && m.VacantB:
		m.IsBye = true
		m.Status = models.MatchStatusCompleted
		sm.g.touch(m)
		return sm.propagate(m)
	}
	return nil
}

func (sm *StateMachine) walkover(m *models.Match, side Slot) error {
	m.IsBye = true
	if side == SlotA {
		m.WinnerID = cloneInt(m.TeamAID)
	} else {
		m.WinnerID = cloneInt(m.TeamBID)
	}
	m.LoserID = nil
	m.Status = models.MatchStatusCompleted
	sm.g.touch(m)
	return sm.propagate(m)
}

func (sm *StateMachine) spawnReset(gf *models.Match) error {
	reset := resetMatchFor(gf)
	if _, exists := sm.g.Match(reset.ID); exists {
		return fmt.Errorf("%w: bracket reset for %s already exists", ErrInvalidMatchState, gf.Code)
	}
	sm.g.add(reset)
	sm.readied = append(sm.readied, reset)
	return nil
}

// outcome collects what the current operation changed and clears the
// per-operation bookkeeping.
func (sm *StateMachine) outcome(m *models.Match) *Outcome {
	out := &Outcome{
		Match:      m,
		NewlyReady: sm.readied,
	}
	for _, t := range sm.g.drain() {
		switch {
		case t.ID == m.ID:
		case sm.g.created[t.ID]:
			out.Created = append(out.Created, t)
		default:
			out.Updated = append(out.Updated, t)
		}
	}
	sm.readied = nil
	return out
}
