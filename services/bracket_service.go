package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

const maxBestOf = 9

type GenerateBracketInput struct {
	TournamentID   int
	Teams          []models.Team
	Format         models.Format
	SeedingPolicy  models.SeedingPolicy
	BestOf         int
	FinalsBestOf   int
	RoundRobinLegs int
	SwissRounds    int
	StartAt        *time.Time
	RoundInterval  time.Duration
	// RandomSeed makes random seeding reproducible; nil draws from the clock.
	RandomSeed *int64
}

type BracketService interface {
	GenerateBracket(ctx context.Context, input GenerateBracketInput) (*brackets.View, error)
	GetBracketView(ctx context.Context, tournamentID int) (*brackets.View, error)
	GetStandings(ctx context.Context, tournamentID int) (*brackets.Standings, error)
	GenerateNextSwissRound(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

type bracketService struct {
	store repositories.Store
	announcer
}

func NewBracketService(
	store repositories.Store,
	notifier events.Notifier,
	snapshots SnapshotSink,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		store: store,
		announcer: announcer{
			store:     store,
			notifier:  notifier,
			snapshots: snapshots,
			logger:    logger,
			now:       func() time.Time { return time.Now().UTC() },
		},
	}
}

func validateBestOf(name string, v int) error {
	if v == 0 {
		return nil
	}
	if v < 0 || v%2 == 0 || v > maxBestOf {
		return fmt.Errorf("%w: %s must be an odd number between 1 and %d, got %d", brackets.ErrInvalidGenerationRequest, name, maxBestOf, v)
	}
	return nil
}

func (s *bracketService) GenerateBracket(ctx context.Context, input GenerateBracketInput) (*brackets.View, error) {
	if input.TournamentID <= 0 {
		return nil, fmt.Errorf("%w: tournament id is required", brackets.ErrInvalidGenerationRequest)
	}
	if err := validateBestOf("best_of", input.BestOf); err != nil {
		return nil, err
	}
	if err := validateBestOf("finals_best_of", input.FinalsBestOf); err != nil {
		return nil, err
	}
	if input.RoundInterval < 0 {
		return nil, fmt.Errorf("%w: round interval cannot be negative", brackets.ErrInvalidGenerationRequest)
	}

	generator, err := brackets.NewGenerator(input.Format)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if input.SeedingPolicy == models.SeedingRandom {
		seed := time.Now().UnixNano()
		if input.RandomSeed != nil {
			seed = *input.RandomSeed
		}
		rng = rand.New(rand.NewSource(seed))
	}
	seeded, err := brackets.AssignSeeds(input.Teams, input.SeedingPolicy, rng)
	if err != nil {
		return nil, err
	}

	now := s.now()
	plan, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		TournamentID:  input.TournamentID,
		Teams:         seeded,
		BestOf:        input.BestOf,
		FinalsBestOf:  input.FinalsBestOf,
		RoundRobin:    models.RoundRobinSettings{Legs: input.RoundRobinLegs},
		Swiss:         models.SwissSettings{Rounds: input.SwissRounds},
		StartAt:       input.StartAt,
		RoundInterval: input.RoundInterval,
		Now:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket for tournament %d: %w", generator.GetName(), input.TournamentID, err)
	}

	err = s.store.RunGeneration(ctx, input.TournamentID, func(ctx context.Context, tx repositories.Tx) error {
		existing, err := tx.ListMatches(ctx, input.TournamentID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			if m.Started() {
				return fmt.Errorf("%w: match %s is %s", brackets.ErrBracketLocked, m.Code, m.Status)
			}
		}

		if err := tx.DeleteBracket(ctx, input.TournamentID); err != nil {
			return err
		}
		for _, stage := range plan.Stages {
			if err := tx.CreateStage(ctx, stage); err != nil {
				return err
			}
		}
		return tx.CreateMatches(ctx, plan.Matches)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", input.TournamentID),
		slog.String("format", string(input.Format)),
		slog.Int("teams", len(seeded)),
		slog.Int("matches", len(plan.Matches)))

	view := brackets.BuildView(input.TournamentID, plan.Stages, plan.Matches)
	s.notify(ctx, input.TournamentID, events.TypeBracketGenerated, view)
	s.publishSnapshot(ctx, input.TournamentID)
	return view, nil
}

func (s *bracketService) GetBracketView(ctx context.Context, tournamentID int) (*brackets.View, error) {
	view, err := loadView(ctx, s.store, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bracket of tournament %d: %w", tournamentID, err)
	}
	return view, nil
}

func (s *bracketService) GetStandings(ctx context.Context, tournamentID int) (*brackets.Standings, error) {
	view, err := s.GetBracketView(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return brackets.ComputeStandings(view), nil
}

// GenerateNextSwissRound pairs the next swiss round under the generation
// lock, so two organizers clicking at once cannot both create it.
func (s *bracketService) GenerateNextSwissRound(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	var created []*models.Match
	err := s.store.RunGeneration(ctx, tournamentID, func(ctx context.Context, tx repositories.Tx) error {
		stages, err := tx.ListStages(ctx, tournamentID)
		if err != nil {
			return err
		}
		var swiss *models.Stage
		for _, st := range stages {
			if st.Type == models.StageSwiss {
				swiss = st
				break
			}
		}
		if swiss == nil {
			if len(stages) == 0 {
				return brackets.ErrBracketNotFound
			}
			return fmt.Errorf("%w: tournament %d has no swiss stage", brackets.ErrInvalidGenerationRequest, tournamentID)
		}

		matches, err := tx.ListMatches(ctx, tournamentID)
		if err != nil {
			return err
		}
		created, err = brackets.NextSwissRound(swiss, matches, s.now())
		if err != nil {
			return err
		}
		return tx.CreateMatches(ctx, created)
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	round := 0
	if len(created) > 0 {
		round = created[0].Round
	}
	s.logger.InfoContext(ctx, "swiss round generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round),
		slog.Int("matches", len(created)))

	s.notify(ctx, tournamentID, events.TypeSwissRoundGenerated, created)
	s.publishSnapshot(ctx, tournamentID)
	return created, nil
}
