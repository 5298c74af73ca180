package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match version conflict")
	ErrGenerationLocked     = errors.New("bracket generation lock is held by another request")
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type BracketReader interface {
	ListStages(ctx context.Context, tournamentID int) ([]*models.Stage, error)
	ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	GetMatch(ctx context.Context, id string) (*models.Match, error)
}

// Tx is the write side of the store, only reachable inside a transaction.
type Tx interface {
	BracketReader

	DeleteBracket(ctx context.Context, tournamentID int) error
	CreateStage(ctx context.Context, stage *models.Stage) error
	CreateMatches(ctx context.Context, matches []*models.Match) error
	// UpdateMatch writes m if the stored version still equals m.Version and
	// bumps m.Version on success. A lost race returns ErrMatchVersionConflict.
	UpdateMatch(ctx context.Context, m *models.Match) error

	// LockBracket holds the tournament's bracket lock in shared mode until
	// the transaction ends. Generation holds it exclusively, so result
	// processing and regeneration never interleave.
	LockBracket(ctx context.Context, tournamentID int) error
	// LockMatches row-locks the matches in id order until the transaction
	// ends. Reports whose results reach a common match queue up here instead
	// of failing on its version.
	LockMatches(ctx context.Context, ids []string) error
}

type Store interface {
	BracketReader

	// RunGeneration runs fn in one transaction while holding the
	// tournament's generation lock. It fails fast with ErrGenerationLocked
	// when another generation for the same tournament is in flight.
	RunGeneration(ctx context.Context, tournamentID int, fn func(ctx context.Context, tx Tx) error) error
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
