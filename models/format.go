package models

type Format string

const (
	FormatSingleElimination Format = "single_elimination"
	FormatDoubleElimination Format = "double_elimination"
	FormatGSL               Format = "gsl"
	FormatRoundRobin        Format = "round_robin"
	FormatSwiss             Format = "swiss"
)

func (f Format) Valid() bool {
	switch f {
	case FormatSingleElimination, FormatDoubleElimination, FormatGSL, FormatRoundRobin, FormatSwiss:
		return true
	}
	return false
}

type SeedingPolicy string

const (
	SeedingRating SeedingPolicy = "rating"
	SeedingRandom SeedingPolicy = "random"
	SeedingManual SeedingPolicy = "manual"
)

// RoundRobinSettings controls the number of legs each pair plays.
type RoundRobinSettings struct {
	Legs int `json:"legs"` // 1 for single round-robin, 2 for double
}

// SwissSettings caps the number of swiss rounds. Zero means the recommended count.
type SwissSettings struct {
	Rounds int `json:"rounds"`
}
