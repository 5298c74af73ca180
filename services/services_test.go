package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingSink struct {
	mu        sync.Mutex
	published []int
	err       error
}

func (s *recordingSink) Publish(_ context.Context, tournamentID int, _ interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.published = append(s.published, tournamentID)
	return fmt.Sprintf("https://cdn.example.com/brackets/%d.json", tournamentID), nil
}

type fixture struct {
	store    repositories.Store
	brackets BracketService
	matches  MatchService
	notifier *recordingNotifier
	sink     *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	store, err := repositories.NewSQLiteStore(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newStoreFixture(store)
}

func newStoreFixture(store repositories.Store) *fixture {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	return &fixture{
		store:    store,
		brackets: NewBracketService(store, notifier, sink, logger),
		matches:  NewMatchService(store, notifier, sink, logger),
		notifier: notifier,
		sink:     sink,
	}
}

// registeredTeams returns n teams in registration order with descending
// ratings, so rating seeding gives team 100+i seed i.
func registeredTeams(n int) []models.Team {
	teams := make([]models.Team, n)
	for i := range teams {
		teams[i] = models.Team{
			ID:     101 + i,
			Name:   fmt.Sprintf("Team %d", i+1),
			Rating: float64(1500 - 10*i),
		}
	}
	return teams
}

func (f *fixture) generate(t *testing.T, format models.Format, n int) *brackets.View {
	t.Helper()
	view, err := f.brackets.GenerateBracket(context.Background(), GenerateBracketInput{
		TournamentID:  7,
		Teams:         registeredTeams(n),
		Format:        format,
		SeedingPolicy: models.SeedingRating,
		BestOf:        1,
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) matchByCode(t *testing.T, code string) *models.Match {
	t.Helper()
	view, err := f.brackets.GetBracketView(context.Background(), 7)
	require.NoError(t, err)
	for _, m := range view.Matches {
		if m.Code == code {
			return m
		}
	}
	t.Fatalf("match %s not found", code)
	return nil
}

func (f *fixture) win(t *testing.T, code string, slotA bool) *brackets.Outcome {
	t.Helper()
	m := f.matchByCode(t, code)
	in := ReportResultInput{MatchID: m.ID, TeamAScore: 1}
	if !slotA {
		in = ReportResultInput{MatchID: m.ID, TeamBScore: 1}
	}
	out, err := f.matches.ReportResult(context.Background(), in)
	require.NoError(t, err)
	return out
}

func TestGenerateBracket_SingleEliminationWithByes(t *testing.T) {
	f := newFixture(t)
	view := f.generate(t, models.FormatSingleElimination, 5)

	assert.Len(t, view.Matches, 7)
	byes := 0
	for _, m := range view.Matches {
		if m.IsBye {
			byes++
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
		}
	}
	assert.Equal(t, 3, byes)

	stored, err := f.brackets.GetBracketView(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, stored.Matches, 7)
	assert.Equal(t, 102, teamOrNil(f.matchByCode(t, "SE-R2-M2").TeamAID))
	assert.Equal(t, 103, teamOrNil(f.matchByCode(t, "SE-R2-M2").TeamBID))

	assert.Equal(t, []events.Type{events.TypeBracketGenerated}, f.notifier.types())
	assert.Equal(t, []int{7}, f.sink.published)
}

func teamOrNil(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func TestGenerateBracket_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input GenerateBracketInput
		kind  brackets.Kind
	}{
		{"one team", GenerateBracketInput{TournamentID: 7, Teams: registeredTeams(1), Format: models.FormatSingleElimination}, brackets.KindInsufficientTeams},
		{"unknown format", GenerateBracketInput{TournamentID: 7, Teams: registeredTeams(4), Format: "ladder"}, brackets.KindInvalidGenerationRequest},
		{"even best of", GenerateBracketInput{TournamentID: 7, Teams: registeredTeams(4), Format: models.FormatSingleElimination, BestOf: 2}, brackets.KindInvalidGenerationRequest},
		{"gsl of six", GenerateBracketInput{TournamentID: 7, Teams: registeredTeams(6), Format: models.FormatGSL}, brackets.KindInvalidGenerationRequest},
		{"bad manual seeds", GenerateBracketInput{
			TournamentID:  7,
			Teams:         []models.Team{{ID: 1, Seed: 1}, {ID: 2, Seed: 1}},
			Format:        models.FormatSingleElimination,
			SeedingPolicy: models.SeedingManual,
		}, brackets.KindInvalidSeedSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.brackets.GenerateBracket(ctx, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.kind, brackets.KindOf(err))
		})
	}

	_, err := f.brackets.GetBracketView(ctx, 7)
	assert.Equal(t, brackets.KindBracketNotFound, brackets.KindOf(err))
}

func TestGenerateBracket_RegenerationBeforePlay(t *testing.T) {
	f := newFixture(t)
	first := f.generate(t, models.FormatDoubleElimination, 6)
	second := f.generate(t, models.FormatDoubleElimination, 6)

	require.Len(t, second.Matches, len(first.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].ID, second.Matches[i].ID)
	}
}

// Once a result is in, regeneration is refused and the stored graph is left
// as it was.
func TestGenerateBracket_LockedAfterPlay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatSingleElimination, 4)
	f.win(t, "SE-R1-M1", true)

	before, err := f.brackets.GetBracketView(ctx, 7)
	require.NoError(t, err)

	_, err = f.brackets.GenerateBracket(ctx, GenerateBracketInput{
		TournamentID: 7,
		Teams:        registeredTeams(8),
		Format:       models.FormatSingleElimination,
	})
	require.Error(t, err)
	assert.Equal(t, brackets.KindBracketLocked, brackets.KindOf(err))

	after, err := f.brackets.GetBracketView(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, before.Matches, after.Matches)
}

func TestGenerateBracket_ConcurrentGenerationFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.RunGeneration(ctx, 7, func(ctx context.Context, _ repositories.Tx) error {
		_, err := f.brackets.GenerateBracket(ctx, GenerateBracketInput{
			TournamentID: 7,
			Teams:        registeredTeams(4),
			Format:       models.FormatSingleElimination,
		})
		return err
	})
	require.Error(t, err)
	assert.Equal(t, brackets.KindGenerationInProgress, brackets.KindOf(err))
}

func TestReportResult_PropagatesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatSingleElimination, 5)

	out := f.win(t, "SE-R1-M2", true)
	assert.Equal(t, models.MatchStatusCompleted, out.Match.Status)
	assert.Equal(t, 104, *out.Match.WinnerID)
	assert.Equal(t, 2, out.Match.Version)
	require.Len(t, out.NewlyReady, 1)
	assert.Equal(t, "SE-R2-M1", out.NewlyReady[0].Code)

	semi := f.matchByCode(t, "SE-R2-M1")
	assert.Equal(t, models.MatchStatusReady, semi.Status)
	assert.Equal(t, 101, *semi.TeamAID)
	assert.Equal(t, 104, *semi.TeamBID)
	assert.Equal(t, 2, semi.Version)

	stored, err := f.matches.GetMatch(ctx, out.Match.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, stored.Status)

	assert.Contains(t, f.notifier.types(), events.TypeMatchUpdated)
	assert.Contains(t, f.notifier.types(), events.TypeMatchesReady)
}

func TestReportResult_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatSingleElimination, 4)
	m := f.matchByCode(t, "SE-R1-M1")

	_, err := f.matches.ReportResult(ctx, ReportResultInput{MatchID: m.ID, TeamAScore: 1, TeamBScore: 1})
	assert.Equal(t, brackets.KindInvalidResult, brackets.KindOf(err))

	stale := 5
	_, err = f.matches.ReportResult(ctx, ReportResultInput{MatchID: m.ID, TeamAScore: 1, ExpectedVersion: &stale})
	assert.Equal(t, brackets.KindStaleMatchState, brackets.KindOf(err))

	_, err = f.matches.ReportResult(ctx, ReportResultInput{MatchID: brackets.MatchID(99, "main", 1, 1), TeamAScore: 1})
	assert.Equal(t, brackets.KindUnknownMatch, brackets.KindOf(err))

	final := f.matchByCode(t, "SE-R2-M1")
	_, err = f.matches.StartMatch(ctx, final.ID)
	assert.Equal(t, brackets.KindInvalidMatchState, brackets.KindOf(err))

	// Nothing above changed the match.
	unchanged := f.matchByCode(t, "SE-R1-M1")
	assert.Equal(t, m.Version, unchanged.Version)
	assert.Equal(t, models.MatchStatusReady, unchanged.Status)

	current := unchanged.Version
	_, err = f.matches.ReportResult(ctx, ReportResultInput{MatchID: m.ID, TeamBScore: 1, ExpectedVersion: &current})
	require.NoError(t, err)
}

func TestStartAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatSingleElimination, 4)

	m := f.matchByCode(t, "SE-R1-M1")
	out, err := f.matches.StartMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusLive, out.Match.Status)

	out, err = f.matches.CancelMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCancelled, out.Match.Status)
	assert.Empty(t, out.Updated)

	final := f.matchByCode(t, "SE-R2-M1")
	assert.Equal(t, models.MatchStatusPending, final.Status)
	assert.Nil(t, final.TeamAID)
}

func TestDoubleElimination_ResetIsPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatDoubleElimination, 2)

	f.win(t, "UB-R1-M1", true)
	out := f.win(t, "GF-M1", false)
	require.Len(t, out.Created, 1)

	reset := f.matchByCode(t, "GF-M2")
	assert.Equal(t, models.MatchStatusReady, reset.Status)
	assert.Equal(t, 101, *reset.TeamAID)
	assert.Equal(t, 102, *reset.TeamBID)

	standings, err := f.brackets.GetStandings(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, standings.Champion)

	f.win(t, "GF-M2", true)
	standings, err = f.brackets.GetStandings(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, standings.Champion)
	assert.Equal(t, 101, *standings.Champion)
	assert.True(t, standings.Complete)
}

func TestGenerateNextSwissRound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatSwiss, 4)

	_, err := f.brackets.GenerateNextSwissRound(ctx, 7)
	assert.Equal(t, brackets.KindInvalidMatchState, brackets.KindOf(err))

	f.win(t, "SW-R1-M1", true)
	f.win(t, "SW-R1-M2", true)

	created, err := f.brackets.GenerateNextSwissRound(ctx, 7)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 101, *created[0].TeamAID)
	assert.Equal(t, 102, *created[0].TeamBID)
	assert.Equal(t, 103, *created[1].TeamAID)
	assert.Equal(t, 104, *created[1].TeamBID)

	stored := f.matchByCode(t, "SW-R2-M1")
	assert.Equal(t, models.MatchStatusReady, stored.Status)
	assert.Contains(t, f.notifier.types(), events.TypeSwissRoundGenerated)
}

func TestGenerateNextSwissRound_WrongFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.brackets.GenerateNextSwissRound(ctx, 7)
	assert.Equal(t, brackets.KindBracketNotFound, brackets.KindOf(err))

	f.generate(t, models.FormatSingleElimination, 4)
	_, err = f.brackets.GenerateNextSwissRound(ctx, 7)
	assert.Equal(t, brackets.KindInvalidGenerationRequest, brackets.KindOf(err))
}

func TestBracketView_RereadIsIdentical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, models.FormatGSL, 8)
	f.win(t, "GA-R1-M1", false)

	a, err := f.brackets.GetBracketView(ctx, 7)
	require.NoError(t, err)
	b, err := f.brackets.GetBracketView(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSideEffectFailuresDoNotFailTheOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	f.sink.err = errors.New("bucket down")

	view := f.generate(t, models.FormatRoundRobin, 3)
	assert.Len(t, view.Matches, 3)
	f.win(t, "RR-R1-M1", true)
}
