package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"golang.org/x/sync/errgroup"
)

// SnapshotSink receives the rendered bracket after every committed change.
// storage.SnapshotPublisher is the production implementation.
type SnapshotSink interface {
	Publish(ctx context.Context, tournamentID int, v interface{}) (string, error)
}

// loadView reads stages and matches in parallel and assembles the view.
func loadView(ctx context.Context, store repositories.BracketReader, tournamentID int) (*brackets.View, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		stages  []*models.Stage
		matches []*models.Match
	)
	g.Go(func() error {
		var err error
		stages, err = store.ListStages(gctx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = store.ListMatches(gctx, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, brackets.ErrBracketNotFound
	}
	return brackets.BuildView(tournamentID, stages, matches), nil
}

// announcer delivers post-commit side effects. Failures are logged and never
// reach the caller: the change they describe is already durable.
type announcer struct {
	store     repositories.BracketReader
	notifier  events.Notifier
	snapshots SnapshotSink
	logger    *slog.Logger
	now       func() time.Time
}

func (a *announcer) notify(ctx context.Context, tournamentID int, typ events.Type, payload interface{}) {
	if a.notifier == nil {
		return
	}
	ev := events.Event{
		Type:         typ,
		TournamentID: tournamentID,
		Payload:      payload,
		OccurredAt:   a.now(),
	}
	if err := a.notifier.Notify(ctx, ev); err != nil {
		a.logger.WarnContext(ctx, "failed to deliver bracket event",
			slog.Int("tournament_id", tournamentID),
			slog.String("event", string(typ)),
			slog.Any("error", err))
	}
}

// publishSnapshot re-reads the committed bracket and hands it to the sink.
func (a *announcer) publishSnapshot(ctx context.Context, tournamentID int) {
	if a.snapshots == nil {
		return
	}
	view, err := loadView(ctx, a.store, tournamentID)
	if err == nil {
		var loc string
		loc, err = a.snapshots.Publish(ctx, tournamentID, view)
		if err == nil {
			a.logger.DebugContext(ctx, "bracket snapshot published",
				slog.Int("tournament_id", tournamentID),
				slog.String("location", loc))
			return
		}
	}
	a.logger.WarnContext(ctx, "failed to publish bracket snapshot",
		slog.Int("tournament_id", tournamentID),
		slog.Any("error", err))
}
