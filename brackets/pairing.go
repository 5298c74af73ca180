package brackets

import "github.com/Dosada05/bracket-engine/models"

// Pairing is one first-round matchup. Team is nil on the side of a bye.
type Pairing struct {
	Position int
	SeedA    int
	SeedB    int
	TeamA    *models.Team
	TeamB    *models.Team
}

func (p Pairing) IsBye() bool {
	return p.TeamA == nil || p.TeamB == nil
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// SeedOrder returns the standard bracket order for a bracket of size p:
// every seed s is followed by its mirror complement, so for p=8 the order is
// [1 8 4 5 2 7 3 6]. Seeds 1 and 2 end up in opposite halves.
func SeedOrder(p int) []int {
	order := []int{1}
	for len(order) < p {
		size := len(order) * 2
		next := make([]int, 0, size)
		for _, s := range order {
			next = append(next, s, size+1-s)
		}
		order = next
	}
	return order
}

// FirstRoundPairings pairs seeded teams (sorted by seed) for a bracket of
// size P = NextPowerOfTwo(len(seeded)). Seeds above N are byes, so the
// P-N byes fall on seeds 1..P-N.
func FirstRoundPairings(seeded []models.Team) []Pairing {
	n := len(seeded)
	if n < 2 {
		return nil
	}
	order := SeedOrder(NextPowerOfTwo(n))
	pairings := make([]Pairing, 0, len(order)/2)
	for i := 0; i < len(order); i += 2 {
		p := Pairing{
			Position: i/2 + 1,
			SeedA:    order[i],
			SeedB:    order[i+1],
		}
		if p.SeedA <= n {
			p.TeamA = &seeded[p.SeedA-1]
		}
		if p.SeedB <= n {
			p.TeamB = &seeded[p.SeedB-1]
		}
		pairings = append(pairings, p)
	}
	return pairings
}

// ByeCount is the number of byes a bracket of n teams needs.
func ByeCount(n int) int {
	if n < 2 {
		return 0
	}
	return NextPowerOfTwo(n) - n
}
