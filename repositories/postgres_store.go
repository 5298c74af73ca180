package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/lib/pq"
)

// Advisory lock namespaces, keyed by tournament id. generationLockClass
// ("BRKT") admits one generation at a time; bracketLockClass ("BRKM") is held
// exclusively by generation and shared by result processing.
const (
	generationLockClass int32 = 0x42524b54
	bracketLockClass    int32 = 0x42524b4d
)

const matchColumns = `
	id, tournament_id, stage_id, code, label, round, position,
	team_a_id, team_b_id,
	source_a_kind, source_a_seed, source_a_match_id,
	source_b_kind, source_b_seed, source_b_match_id,
	vacant_a, vacant_b, status, score_a, score_b, winner_id, loser_id,
	best_of, is_bye, allows_reset, scheduled_at,
	winner_advances_to, loser_advances_to, version, updated_at`

type postgresStore struct {
	pgReader
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{pgReader: pgReader{exec: db}, db: db}
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

func (s *postgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				txErr = fmt.Errorf("%w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	return fn(ctx, &pgTx{pgReader: pgReader{exec: tx}})
}

func (s *postgresStore) RunGeneration(ctx context.Context, tournamentID int, fn func(ctx context.Context, tx Tx) error) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var acquired bool
		err := tx.(*pgTx).exec.QueryRowContext(ctx,
			`SELECT pg_try_advisory_xact_lock($1, $2)`, generationLockClass, tournamentID,
		).Scan(&acquired)
		if err != nil {
			return fmt.Errorf("failed to take generation lock for tournament %d: %w", tournamentID, err)
		}
		if !acquired {
			return ErrGenerationLocked
		}
		// Waits for in-flight result processing to commit, so the matches
		// read next reflect every started match.
		if _, err := tx.(*pgTx).exec.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock($1, $2)`, bracketLockClass, tournamentID); err != nil {
			return fmt.Errorf("failed to take bracket lock for tournament %d: %w", tournamentID, err)
		}
		return fn(ctx, tx)
	})
}

type pgReader struct {
	exec SQLExecutor
}

func (r pgReader) ListStages(ctx context.Context, tournamentID int) ([]*models.Stage, error) {
	query := `
		SELECT id, tournament_id, name, type, format, stage_order, best_of, rounds, created_at
		FROM bracket_stages
		WHERE tournament_id = $1
		ORDER BY stage_order ASC`

	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	stages := make([]*models.Stage, 0)
	for rows.Next() {
		var s models.Stage
		if scanErr := rows.Scan(&s.ID, &s.TournamentID, &s.Name, &s.Type, &s.Format, &s.Order, &s.BestOf, &s.Rounds, &s.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan stage row: %w", scanErr)
		}
		stages = append(stages, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stage rows iteration: %w", err)
	}
	return stages, nil
}

func (r pgReader) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM bracket_matches
		WHERE tournament_id = $1
		ORDER BY stage_id, round ASC, position ASC`

	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r pgReader) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM bracket_matches WHERE id = $1`

	m, err := scanMatch(r.exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "22P02" {
			// invalid_text_representation: not a uuid, so no such match
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %s: %w", id, err)
	}
	return m, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m             models.Match
		srcA, srcB    sql.NullString
		winTo, loseTo sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.StageID, &m.Code, &m.Label, &m.Round, &m.Position,
		&m.TeamAID, &m.TeamBID,
		&m.SourceA.Kind, &m.SourceA.Seed, &srcA,
		&m.SourceB.Kind, &m.SourceB.Seed, &srcB,
		&m.VacantA, &m.VacantB, &m.Status, &m.ScoreA, &m.ScoreB, &m.WinnerID, &m.LoserID,
		&m.BestOf, &m.IsBye, &m.AllowsReset, &m.ScheduledAt,
		&winTo, &loseTo, &m.Version, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.SourceA.MatchID = srcA.String
	m.SourceB.MatchID = srcB.String
	if winTo.Valid {
		m.WinnerAdvancesTo = &winTo.String
	}
	if loseTo.Valid {
		m.LoserAdvancesTo = &loseTo.String
	}
	return &m, nil
}

type pgTx struct {
	pgReader
}

func (t *pgTx) DeleteBracket(ctx context.Context, tournamentID int) error {
	if _, err := t.exec.ExecContext(ctx, `DELETE FROM bracket_matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	if _, err := t.exec.ExecContext(ctx, `DELETE FROM bracket_stages WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete stages of tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (t *pgTx) CreateStage(ctx context.Context, s *models.Stage) error {
	query := `
		INSERT INTO bracket_stages (id, tournament_id, name, type, format, stage_order, best_of, rounds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := t.exec.ExecContext(ctx, query,
		s.ID, s.TournamentID, s.Name, s.Type, s.Format, s.Order, s.BestOf, s.Rounds, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stage %s: %w", s.Name, err)
	}
	return nil
}

// CreateMatches inserts matches with one multi-row INSERT per batch. The
// advancement foreign keys are deferred, so batches may reference matches
// inserted later in the same transaction.
func (t *pgTx) CreateMatches(ctx context.Context, matches []*models.Match) error {
	const perRow = 30
	const batchSize = 500

	for start := 0; start < len(matches); start += batchSize {
		end := start + batchSize
		if end > len(matches) {
			end = len(matches)
		}
		batch := matches[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO bracket_matches (` + matchColumns + `) VALUES `)
		args := make([]interface{}, 0, len(batch)*perRow)
		for i, m := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			for c := 0; c < perRow; c++ {
				if c > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "$%d", i*perRow+c+1)
			}
			sb.WriteString(")")
			args = append(args, matchArgs(m)...)
		}

		if _, err := t.exec.ExecContext(ctx, sb.String(), args...); err != nil {
			return handleMatchError(err)
		}
	}
	return nil
}

func matchArgs(m *models.Match) []interface{} {
	return []interface{}{
		m.ID, m.TournamentID, m.StageID, m.Code, m.Label, m.Round, m.Position,
		m.TeamAID, m.TeamBID,
		m.SourceA.Kind, m.SourceA.Seed, nullString(m.SourceA.MatchID),
		m.SourceB.Kind, m.SourceB.Seed, nullString(m.SourceB.MatchID),
		m.VacantA, m.VacantB, m.Status, m.ScoreA, m.ScoreB, m.WinnerID, m.LoserID,
		m.BestOf, m.IsBye, m.AllowsReset, m.ScheduledAt,
		m.WinnerAdvancesTo, m.LoserAdvancesTo, m.Version, m.UpdatedAt,
	}
}

func (t *pgTx) UpdateMatch(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE bracket_matches
		SET team_a_id = $1, team_b_id = $2, vacant_a = $3, vacant_b = $4, status = $5,
		    score_a = $6, score_b = $7, winner_id = $8, loser_id = $9, is_bye = $10,
		    scheduled_at = $11, version = version + 1, updated_at = $12
		WHERE id = $13 AND version = $14`

	result, err := t.exec.ExecContext(ctx, query,
		m.TeamAID, m.TeamBID, m.VacantA, m.VacantB, m.Status,
		m.ScoreA, m.ScoreB, m.WinnerID, m.LoserID, m.IsBye,
		m.ScheduledAt, m.UpdatedAt, m.ID, m.Version)
	if err != nil {
		return handleMatchError(err)
	}
	if err := checkAffectedRows(result, ErrMatchVersionConflict); err != nil {
		return fmt.Errorf("match %s at version %d: %w", m.Code, m.Version, err)
	}
	m.Version++
	return nil
}

func (t *pgTx) LockBracket(ctx context.Context, tournamentID int) error {
	if _, err := t.exec.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock_shared($1, $2)`, bracketLockClass, tournamentID); err != nil {
		return fmt.Errorf("failed to take shared bracket lock for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (t *pgTx) LockMatches(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := t.exec.QueryContext(ctx,
		`SELECT id FROM bracket_matches WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to lock %d matches: %w", len(ids), err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock %d matches: %w", len(ids), err)
	}
	return nil
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "bracket_matches_slot_key", "bracket_matches_pkey":
			return fmt.Errorf("duplicate bracket slot: %w", err)
		case "bracket_matches_stage_id_fkey":
			return fmt.Errorf("match references an unknown stage: %w", err)
		}
	}
	return err
}
