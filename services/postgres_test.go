package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sqlDB, err := db.Connect(dsn, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), sqlDB))

	store := repositories.NewPostgresStore(sqlDB)
	reset := func() {
		_ = store.RunInTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
			return tx.DeleteBracket(ctx, 7)
		})
	}
	reset()
	t.Cleanup(func() {
		reset()
		_ = store.Close()
	})
	return newStoreFixture(store)
}

func TestPostgres_SiblingReportsFeedingOneFinal(t *testing.T) {
	f := newPostgresFixture(t)
	f.generate(t, models.FormatSingleElimination, 4)

	semis := []*models.Match{f.matchByCode(t, "SE-R1-M1"), f.matchByCode(t, "SE-R1-M2")}

	start := make(chan struct{})
	var g errgroup.Group
	for _, m := range semis {
		id := m.ID
		g.Go(func() error {
			<-start
			_, err := f.matches.ReportResult(context.Background(), ReportResultInput{MatchID: id, TeamAScore: 1})
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	final := f.matchByCode(t, "SE-R2-M1")
	assert.Equal(t, models.MatchStatusReady, final.Status)
	assert.ElementsMatch(t, []int{101, 102}, []int{teamOrNil(final.TeamAID), teamOrNil(final.TeamBID)})
}

func TestPostgres_GenerationWaitsForMatchMutation(t *testing.T) {
	f := newPostgresFixture(t)
	f.generate(t, models.FormatSingleElimination, 4)
	semi := f.matchByCode(t, "SE-R1-M1")

	locked := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = f.store.RunInTx(context.Background(), func(ctx context.Context, tx repositories.Tx) error {
			if err := tx.LockBracket(ctx, 7); err != nil {
				return err
			}
			m, err := tx.GetMatch(ctx, semi.ID)
			if err != nil {
				return err
			}
			m.Status = models.MatchStatusLive
			if err := tx.UpdateMatch(ctx, m); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	genErr := make(chan error, 1)
	go func() {
		_, err := f.brackets.GenerateBracket(context.Background(), GenerateBracketInput{
			TournamentID:  7,
			Teams:         registeredTeams(4),
			Format:        models.FormatSingleElimination,
			SeedingPolicy: models.SeedingRating,
			BestOf:        1,
		})
		genErr <- err
	}()

	select {
	case err := <-genErr:
		t.Fatalf("generation finished while the bracket was held: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	wg.Wait()

	assert.ErrorIs(t, <-genErr, brackets.ErrBracketLocked)
	assert.Equal(t, models.MatchStatusLive, f.matchByCode(t, "SE-R1-M1").Status)
}
