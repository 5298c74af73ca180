// Command bracketctl drives the bracket engine against a local SQLite file.
//
//	bracketctl generate -t 1 -f double_elimination --teams teams.json
//	bracketctl report 6b0c... --score-a 2 --score-b 1
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/events"
	"github.com/Dosada05/bracket-engine/models"
	"github.com/Dosada05/bracket-engine/repositories"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/jessevdk/go-flags"
)

type globalOptions struct {
	Database string `long:"db" env:"SQLITE_PATH" default:"data/brackets.db" description:"SQLite database file"`
	NATSURL  string `long:"nats-url" env:"NATS_URL" description:"publish bracket events to this NATS server"`
	Verbose  bool   `short:"v" long:"verbose" description:"log debug output to stderr"`
}

// app is shared by every command; it opens the store lazily so --help works
// without a database.
type app struct {
	opts     globalOptions
	store    repositories.Store
	closers  []func()
	brackets services.BracketService
	matches  services.MatchService
	out      io.Writer
}

func (a *app) open() error {
	level := slog.LevelWarn
	if a.opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	gdb, err := db.OpenSQLite(a.opts.Database)
	if err != nil {
		return err
	}
	a.store, err = repositories.NewSQLiteStore(gdb)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	var notifier events.Notifier
	if a.opts.NATSURL != "" {
		pub, err := events.ConnectNATS(a.opts.NATSURL, "bracketctl")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pub.Close)
		notifier = pub
	}

	a.brackets = services.NewBracketService(a.store, notifier, nil, logger)
	a.matches = services.NewMatchService(a.store, notifier, nil, logger)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type tournamentArg struct {
	TournamentID int `short:"t" long:"tournament" required:"yes" description:"tournament id"`
}

type matchArg struct {
	Args struct {
		MatchID string `positional-arg-name:"match-id" required:"yes"`
	} `positional-args:"yes"`
}

type generateCommand struct {
	app *app
	tournamentArg
	Format        string `short:"f" long:"format" required:"yes" choice:"single_elimination" choice:"double_elimination" choice:"gsl" choice:"round_robin" choice:"swiss"`
	Teams         string `long:"teams" required:"yes" description:"JSON file with the registered teams"`
	Seeding       string `long:"seeding" default:"rating" choice:"rating" choice:"random" choice:"manual"`
	BestOf        int    `long:"best-of" description:"games per match"`
	FinalsBestOf  int    `long:"finals-best-of" description:"games per grand final"`
	Legs          int    `long:"legs" description:"round robin legs (1 or 2)"`
	SwissRounds   int    `long:"swiss-rounds" description:"number of swiss rounds"`
	StartAt       string `long:"start-at" description:"RFC 3339 time of the first round"`
	RoundInterval int    `long:"round-interval" description:"minutes between rounds"`
	RandomSeed    *int64 `long:"random-seed" description:"seed for random seeding"`
}

func (c *generateCommand) Execute([]string) error {
	teams, err := readTeams(c.Teams)
	if err != nil {
		return err
	}

	input := services.GenerateBracketInput{
		TournamentID:   c.TournamentID,
		Teams:          teams,
		Format:         models.Format(c.Format),
		SeedingPolicy:  models.SeedingPolicy(c.Seeding),
		BestOf:         c.BestOf,
		FinalsBestOf:   c.FinalsBestOf,
		RoundRobinLegs: c.Legs,
		SwissRounds:    c.SwissRounds,
		RoundInterval:  time.Duration(c.RoundInterval) * time.Minute,
		RandomSeed:     c.RandomSeed,
	}
	if c.StartAt != "" {
		at, err := time.Parse(time.RFC3339, c.StartAt)
		if err != nil {
			return fmt.Errorf("invalid --start-at: %w", err)
		}
		input.StartAt = &at
	}

	if err := c.app.open(); err != nil {
		return err
	}
	view, err := c.app.brackets.GenerateBracket(context.Background(), input)
	if err != nil {
		return err
	}
	return c.app.print(view)
}

func readTeams(path string) ([]models.Team, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read teams file: %w", err)
	}
	var teams []models.Team
	if err := json.Unmarshal(raw, &teams); err != nil {
		return nil, fmt.Errorf("failed to parse teams file %s: %w", path, err)
	}
	return teams, nil
}

type showCommand struct {
	app *app
	tournamentArg
}

func (c *showCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	view, err := c.app.brackets.GetBracketView(context.Background(), c.TournamentID)
	if err != nil {
		return err
	}
	return c.app.print(view)
}

type standingsCommand struct {
	app *app
	tournamentArg
}

func (c *standingsCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	standings, err := c.app.brackets.GetStandings(context.Background(), c.TournamentID)
	if err != nil {
		return err
	}
	return c.app.print(standings)
}

type nextSwissCommand struct {
	app *app
	tournamentArg
}

func (c *nextSwissCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	created, err := c.app.brackets.GenerateNextSwissRound(context.Background(), c.TournamentID)
	if err != nil {
		return err
	}
	return c.app.print(created)
}

type startCommand struct {
	app *app
	matchArg
}

func (c *startCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	out, err := c.app.matches.StartMatch(context.Background(), c.Args.MatchID)
	if err != nil {
		return err
	}
	return c.app.print(out)
}

type cancelCommand struct {
	app *app
	matchArg
}

func (c *cancelCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	out, err := c.app.matches.CancelMatch(context.Background(), c.Args.MatchID)
	if err != nil {
		return err
	}
	return c.app.print(out)
}

type reportCommand struct {
	app *app
	matchArg
	ScoreA          int  `long:"score-a" required:"yes"`
	ScoreB          int  `long:"score-b" required:"yes"`
	Winner          *int `long:"winner" description:"winning team id, needed to settle a tied score"`
	ExpectedVersion *int `long:"expected-version" description:"reject the report if the match changed"`
}

func (c *reportCommand) Execute([]string) error {
	if err := c.app.open(); err != nil {
		return err
	}
	out, err := c.app.matches.ReportResult(context.Background(), services.ReportResultInput{
		MatchID:         c.Args.MatchID,
		TeamAScore:      c.ScoreA,
		TeamBScore:      c.ScoreB,
		WinnerTeamID:    c.Winner,
		ExpectedVersion: c.ExpectedVersion,
	})
	if err != nil {
		return err
	}
	return c.app.print(out)
}

func newParser(a *app) (*flags.Parser, error) {
	parser := flags.NewParser(&a.opts, flags.HelpFlag|flags.PassDoubleDash)
	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"generate", "Generate (or regenerate) a tournament bracket", &generateCommand{app: a}},
		{"show", "Print the bracket of a tournament", &showCommand{app: a}},
		{"standings", "Print the standings of a tournament", &standingsCommand{app: a}},
		{"next-swiss", "Pair the next swiss round", &nextSwissCommand{app: a}},
		{"start", "Mark a ready match as live", &startCommand{app: a}},
		{"report", "Report the final score of a match", &reportCommand{app: a}},
		{"cancel", "Cancel a match", &cancelCommand{app: a}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.data); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

// exitCode is 2 for usage errors and 1 for engine failures.
func exitCode(err error) int {
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) {
		if flagsErr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}
	return 1
}

func run(args []string, out io.Writer) error {
	a := &app{out: out}
	defer a.close()

	parser, err := newParser(a)
	if err != nil {
		return err
	}
	_, err = parser.ParseArgs(args)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var flagsErr *flags.Error
		switch {
		case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
			fmt.Fprintln(os.Stdout, err)
		case errors.As(err, &flagsErr):
			fmt.Fprintln(os.Stderr, err)
		default:
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", brackets.KindOf(err), err)
		}
		os.Exit(exitCode(err))
	}
}
