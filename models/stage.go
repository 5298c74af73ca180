package models

import "time"

type StageType string

const (
	StageSingleElimination StageType = "single_elimination"
	StageUpperBracket      StageType = "upper_bracket"
	StageLowerBracket      StageType = "lower_bracket"
	StageGrandFinal        StageType = "grand_final"
	StageGSLGroup          StageType = "gsl_group"
	StageRoundRobin        StageType = "round_robin"
	StageSwiss             StageType = "swiss"
)

// Stage is a named phase of a tournament bracket (Upper Bracket, Group A, ...).
type Stage struct {
	ID           string    `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	Type         StageType `json:"type"`
	Format       Format    `json:"format"`
	Order        int       `json:"order"`
	BestOf       int       `json:"best_of"`
	Rounds       int       `json:"rounds"`
	CreatedAt    time.Time `json:"created_at"`
}
