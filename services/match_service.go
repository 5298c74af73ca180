package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
)

type ReportResultInput struct {
	MatchID      string
	TeamAScore   int
	TeamBScore   int
	WinnerTeamID *int
	// ExpectedVersion rejects the report when the match changed since the
	// caller read it.
	ExpectedVersion *int
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	StartMatch(ctx context.Context, matchID string) (*brackets.Outcome, error)
	ReportResult(ctx context.Context, input ReportResultInput) (*brackets.Outcome, error)
	CancelMatch(ctx context.Context, matchID string) (*brackets.Outcome, error)
}

type matchService struct {
	store repositories.Store
	announcer
}

func NewMatchService(
	store repositories.Store,
	notifier events.Notifier,
	snapshots SnapshotSink,
	logger *slog.Logger,
) MatchService {
	return &matchService{
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

func (s *matchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return m, nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID string) (*brackets.Outcome, error) {
	return s.apply(ctx, matchID, nil, "start", func(sm *brackets.StateMachine) (*brackets.Outcome, error) {
		return sm.Start(matchID)
	})
}

func (s *matchService) ReportResult(ctx context.Context, input ReportResultInput) (*brackets.Outcome, error) {
	result := brackets.Result{
		ScoreA:   input.TeamAScore,
		ScoreB:   input.TeamBScore,
		WinnerID: input.WinnerTeamID,
	}
	return s.apply(ctx, input.MatchID, input.ExpectedVersion, "report", func(sm *brackets.StateMachine) (*brackets.Outcome, error) {
		return sm.Report(input.MatchID, result)
	})
}

func (s *matchService) CancelMatch(ctx context.Context, matchID string) (*brackets.Outcome, error) {
	return s.apply(ctx, matchID, nil, "cancel", func(sm *brackets.StateMachine) (*brackets.Outcome, error) {
		return sm.Cancel(matchID)
	})
}

// apply loads the tournament graph inside one transaction, runs op on it and
// writes back exactly the matches it touched or created. The bracket lock
// keeps regeneration out; row locks on everything the match can reach make
// reports that share a downstream match run one after the other.
func (s *matchService) apply(
	ctx context.Context,
	matchID string,
	expectedVersion *int,
	action string,
	op func(sm *brackets.StateMachine) (*brackets.Outcome, error),
) (*brackets.Outcome, error) {
	var outcome *brackets.Outcome
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repositories.Tx) error {
		target, err := tx.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if err := tx.LockBracket(ctx, target.TournamentID); err != nil {
			return err
		}

		matches, err := tx.ListMatches(ctx, target.TournamentID)
		if err != nil {
			return err
		}
		if err := tx.LockMatches(ctx, brackets.NewGraph(matches, s.now).Downstream(matchID)); err != nil {
			return err
		}

		// Re-read under the locks.
		matches, err = tx.ListMatches(ctx, target.TournamentID)
		if err != nil {
			return err
		}
		graph := brackets.NewGraph(matches, s.now)
		current, ok := graph.Match(matchID)
		if !ok {
			return repositories.ErrMatchNotFound
		}
		if expectedVersion != nil && *expectedVersion != current.Version {
			return fmt.Errorf("%w: match %s is at version %d, expected %d",
				brackets.ErrStaleMatchState, current.Code, current.Version, *expectedVersion)
		}

		outcome, err = op(brackets.NewStateMachine(graph))
		if err != nil {
			return err
		}

		for _, m := range graph.Touched() {
			if err := tx.UpdateMatch(ctx, m); err != nil {
				return err
			}
		}
		return tx.CreateMatches(ctx, graph.Created())
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	m := outcome.Match
	s.logger.InfoContext(ctx, "match "+action+" applied",
		slog.Int("tournament_id", m.TournamentID),
		slog.String("match", m.Code),
		slog.String("status", string(m.Status)),
		slog.Int("downstream_updated", len(outcome.Updated)),
		slog.Int("created", len(outcome.Created)))

	s.notify(ctx, m.TournamentID, events.TypeMatchUpdated, outcome)
	if len(outcome.NewlyReady) > 0 {
		s.notify(ctx, m.TournamentID, events.TypeMatchesReady, outcome.NewlyReady)
	}
	s.publishSnapshot(ctx, m.TournamentID)
	return outcome, nil
}
