package models

// Team is a registered entrant handed to the engine by the registration
// collaborator. Seed is assigned by the engine unless seeding is manual.
type Team struct {
	ID     int     `json:"id"`
	Name   string  `json:"display_name"`
	Rating float64 `json:"rating"`
	Seed   int     `json:"seed,omitempty"`
}
