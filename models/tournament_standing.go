package models

// TeamRecord is one row of a group table (round robin, swiss).
type TeamRecord struct {
	TeamID   int `json:"team_id"`
	Seed     int `json:"seed"`
	Played   int `json:"played"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
	Byes     int `json:"byes"`
	MapsWon  int `json:"maps_won"`
	MapsLost int `json:"maps_lost"`
	MapDiff  int `json:"map_difference"`
	Rank     int `json:"rank"`
}

// Placement is a final-standing range for elimination stages: teams knocked
// out in the same round share PlaceFrom..PlaceTo.
type Placement struct {
	TeamID    int    `json:"team_id"`
	PlaceFrom int    `json:"place_from"`
	PlaceTo   int    `json:"place_to"`
	Stage     string `json:"stage,omitempty"`
	Round     int    `json:"round,omitempty"`
}

// GroupResult lists who went through a GSL group and who went out.
type GroupResult struct {
	StageID    string `json:"stage_id"`
	Name       string `json:"name"`
	Qualifiers []int  `json:"qualifiers"`
	Eliminated []int  `json:"eliminated"`
	Complete   bool   `json:"complete"`
}
