package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusReady     MatchStatus = "ready"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// SourceKind says where a slot's team comes from before it is resolved.
type SourceKind string

const (
	SourceNone     SourceKind = ""
	SourceSeed     SourceKind = "seed"
	SourceWinnerOf SourceKind = "winner_of"
	SourceLoserOf  SourceKind = "loser_of"
)

// SlotSource describes a slot: a seed number for first-round slots, or a
// pointer to the match whose winner/loser fills it.
type SlotSource struct {
	Kind    SourceKind `json:"kind,omitempty"`
	Seed    int        `json:"seed,omitempty"`
	MatchID string     `json:"match_id,omitempty"`
}

func SeedSource(seed int) SlotSource {
	return SlotSource{Kind: SourceSeed, Seed: seed}
}

func WinnerOf(matchID string) SlotSource {
	return SlotSource{Kind: SourceWinnerOf, MatchID: matchID}
}

func LoserOf(matchID string) SlotSource {
	return SlotSource{Kind: SourceLoserOf, MatchID: matchID}
}

// String renders the descriptor in its legacy text form (seed_5, winner_of_<id>).
func (s SlotSource) String() string {
	switch s.Kind {
	case SourceSeed:
		return fmt.Sprintf("seed_%d", s.Seed)
	case SourceWinnerOf, SourceLoserOf:
		return fmt.Sprintf("%s_%s", s.Kind, s.MatchID)
	default:
		return ""
	}
}

type Match struct {
	ID           string      `json:"id"`
	TournamentID int         `json:"tournament_id"`
	StageID      string      `json:"stage_id"`
	Code         string      `json:"code"`
	Label        string      `json:"label,omitempty"`
	Round        int         `json:"round"`
	Position     int         `json:"position"`
	TeamAID      *int        `json:"team_a_id"`
	TeamBID      *int        `json:"team_b_id"`
	SourceA      SlotSource  `json:"source_a"`
	SourceB      SlotSource  `json:"source_b"`
	VacantA      bool        `json:"vacant_a,omitempty"`
	VacantB      bool        `json:"vacant_b,omitempty"`
	Status       MatchStatus `json:"status"`
	ScoreA       int         `json:"score_a"`
	ScoreB       int         `json:"score_b"`
	WinnerID     *int        `json:"winner_id"`
	LoserID      *int        `json:"loser_id"`
	BestOf       int         `json:"best_of"`
	IsBye        bool        `json:"is_bye,omitempty"`
	AllowsReset  bool        `json:"allows_reset,omitempty"`
	ScheduledAt  *time.Time  `json:"scheduled_at"`

	WinnerAdvancesTo *string `json:"winner_advances_to"`
	LoserAdvancesTo  *string `json:"loser_advances_to"`

	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WinsNeeded is the number of maps that decides a best-of series.
func (m *Match) WinsNeeded() int {
	if m.BestOf <= 1 {
		return 1
	}
	return m.BestOf/2 + 1
}

// Started reports whether the match left the pre-play states through a real
// action. Bye walkovers are completed at creation and do not count.
func (m *Match) Started() bool {
	switch m.Status {
	case MatchStatusLive, MatchStatusCancelled:
		return true
	case MatchStatusCompleted:
		return !m.IsBye
	}
	return false
}

func (m *Match) HasTeam(teamID int) bool {
	return (m.TeamAID != nil && *m.TeamAID == teamID) || (m.TeamBID != nil && *m.TeamBID == teamID)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (m *Match) Clone() *Match {
	c := *m
	c.TeamAID = cloneInt(m.TeamAID)
	c.TeamBID = cloneInt(m.TeamBID)
	c.WinnerID = cloneInt(m.WinnerID)
	c.LoserID = cloneInt(m.LoserID)
	c.WinnerAdvancesTo = cloneString(m.WinnerAdvancesTo)
	c.LoserAdvancesTo = cloneString(m.LoserAdvancesTo)
	if m.ScheduledAt != nil {
		t := *m.ScheduledAt
		c.ScheduledAt = &t
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
