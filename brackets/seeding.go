package brackets

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

// AssignSeeds orders teams into seed numbers 1..N according to policy and
// returns copies with Seed set, sorted by seed. The input slice order is the
// registration order.
func AssignSeeds(teams []models.Team, policy models.SeedingPolicy, rng *rand.Rand) ([]models.Team, error) {
	n := len(teams)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d, minimum 2", ErrInsufficientTeams, n)
	}

	seen := make(map[int]bool, n)
	for _, t := range teams {
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: team %d registered twice", ErrInvalidSeedSet, t.ID)
		}
		seen[t.ID] = true
	}

	seeded := make([]models.Team, n)
	copy(seeded, teams)

	switch policy {
	case models.SeedingRating, "":
		sort.SliceStable(seeded, func(i, j int) bool {
			return seeded[i].Rating > seeded[j].Rating
		})
	case models.SeedingRandom:
		if rng == nil {
			return nil, fmt.Errorf("%w: random seeding requires a source", ErrInvalidGenerationRequest)
		}
		rng.Shuffle(n, func(i, j int) {
			seeded[i], seeded[j] = seeded[j], seeded[i]
		})
	case models.SeedingManual:
		if err := validateManualSeeds(seeded); err != nil {
			return nil, err
		}
		sort.Slice(seeded, func(i, j int) bool {
			return seeded[i].Seed < seeded[j].Seed
		})
		return seeded, nil
	default:
		return nil, fmt.Errorf("%w: unknown seeding policy %q", ErrInvalidGenerationRequest, policy)
	}

	for i := range seeded {
		seeded[i].Seed = i + 1
	}
	return seeded, nil
}

func validateManualSeeds(teams []models.Team) error {
	n := len(teams)
	used := make([]bool, n+1)
	for _, t := range teams {
		if t.Seed < 1 || t.Seed > n {
			return fmt.Errorf("%w: team %d has seed %d, expected 1..%d", ErrInvalidSeedSet, t.ID, t.Seed, n)
		}
		if used[t.Seed] {
			return fmt.Errorf("%w: seed %d assigned twice", ErrInvalidSeedSet, t.Seed)
		}
		used[t.Seed] = true
	}
	return nil
}
