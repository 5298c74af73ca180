package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dosada05/bracket-engine/models"
	"gorm.io/gorm"
)

type stageRow struct {
	ID           string `gorm:"primaryKey"`
	TournamentID int    `gorm:"index"`
	Name         string
	Type         string
	Format       string
	StageOrder   int
	BestOf       int
	Rounds       int
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
}

func (stageRow) TableName() string { return "bracket_stages" }

type matchRow struct {
	ID               string `gorm:"primaryKey"`
	TournamentID     int    `gorm:"index"`
	StageID          string `gorm:"uniqueIndex:bracket_matches_slot_key"`
	Code             string
	Label            string
	Round            int    `gorm:"uniqueIndex:bracket_matches_slot_key"`
	Position         int    `gorm:"uniqueIndex:bracket_matches_slot_key"`
	TeamAID          *int   `gorm:"column:team_a_id"`
	TeamBID          *int   `gorm:"column:team_b_id"`
	SourceAKind      string `gorm:"column:source_a_kind"`
	SourceASeed      int    `gorm:"column:source_a_seed"`
	SourceAMatchID   string `gorm:"column:source_a_match_id"`
	SourceBKind      string `gorm:"column:source_b_kind"`
	SourceBSeed      int    `gorm:"column:source_b_seed"`
	SourceBMatchID   string `gorm:"column:source_b_match_id"`
	VacantA          bool   `gorm:"column:vacant_a"`
	VacantB          bool   `gorm:"column:vacant_b"`
	Status           string
	ScoreA           int  `gorm:"column:score_a"`
	ScoreB           int  `gorm:"column:score_b"`
	WinnerID         *int `gorm:"column:winner_id"`
	LoserID          *int `gorm:"column:loser_id"`
	BestOf           int
	IsBye            bool
	AllowsReset      bool
	ScheduledAt      *time.Time
	WinnerAdvancesTo *string
	LoserAdvancesTo  *string
	Version          int
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (matchRow) TableName() string { return "bracket_matches" }

func toStageRow(s *models.Stage) stageRow {
	return stageRow{
		ID:           s.ID,
		TournamentID: s.TournamentID,
		Name:         s.Name,
		Type:         string(s.Type),
		Format:       string(s.Format),
		StageOrder:   s.Order,
		BestOf:       s.BestOf,
		Rounds:       s.Rounds,
		CreatedAt:    s.CreatedAt,
	}
}

func (r stageRow) toModel() *models.Stage {
	return &models.Stage{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		Name:         r.Name,
		Type:         models.StageType(r.Type),
		Format:       models.Format(r.Format),
		Order:        r.StageOrder,
		BestOf:       r.BestOf,
		Rounds:       r.Rounds,
		CreatedAt:    r.CreatedAt,
	}
}

func toMatchRow(m *models.Match) matchRow {
	return matchRow{
		ID:               m.ID,
		TournamentID:     m.TournamentID,
		StageID:          m.StageID,
		Code:             m.Code,
		Label:            m.Label,
		Round:            m.Round,
		Position:         m.Position,
		TeamAID:          m.TeamAID,
		TeamBID:          m.TeamBID,
		SourceAKind:      string(m.SourceA.Kind),
		SourceASeed:      m.SourceA.Seed,
		SourceAMatchID:   m.SourceA.MatchID,
		SourceBKind:      string(m.SourceB.Kind),
		SourceBSeed:      m.SourceB.Seed,
		SourceBMatchID:   m.SourceB.MatchID,
		VacantA:          m.VacantA,
		VacantB:          m.VacantB,
		Status:           string(m.Status),
		ScoreA:           m.ScoreA,
		ScoreB:           m.ScoreB,
		WinnerID:         m.WinnerID,
		LoserID:          m.LoserID,
		BestOf:           m.BestOf,
		IsBye:            m.IsBye,
		AllowsReset:      m.AllowsReset,
		ScheduledAt:      m.ScheduledAt,
		WinnerAdvancesTo: m.WinnerAdvancesTo,
		LoserAdvancesTo:  m.LoserAdvancesTo,
		Version:          m.Version,
		UpdatedAt:        m.UpdatedAt,
	}
}

func (r matchRow) toModel() *models.Match {
	return &models.Match{
		ID:               r.ID,
		TournamentID:     r.TournamentID,
		StageID:          r.StageID,
		Code:             r.Code,
		Label:            r.Label,
		Round:            r.Round,
		Position:         r.Position,
		TeamAID:          r.TeamAID,
		TeamBID:          r.TeamBID,
		SourceA:          models.SlotSource{Kind: models.SourceKind(r.SourceAKind), Seed: r.SourceASeed, MatchID: r.SourceAMatchID},
		SourceB:          models.SlotSource{Kind: models.SourceKind(r.SourceBKind), Seed: r.SourceBSeed, MatchID: r.SourceBMatchID},
		VacantA:          r.VacantA,
		VacantB:          r.VacantB,
		Status:           models.MatchStatus(r.Status),
		ScoreA:           r.ScoreA,
		ScoreB:           r.ScoreB,
		WinnerID:         r.WinnerID,
		LoserID:          r.LoserID,
		BestOf:           r.BestOf,
		IsBye:            r.IsBye,
		AllowsReset:      r.AllowsReset,
		ScheduledAt:      r.ScheduledAt,
		WinnerAdvancesTo: r.WinnerAdvancesTo,
		LoserAdvancesTo:  r.LoserAdvancesTo,
		Version:          r.Version,
		UpdatedAt:        r.UpdatedAt,
	}
}

// sqliteStore keeps brackets in a local SQLite file through gorm. SQLite has
// no advisory locks, so the generation guard is an in-process mutex per
// tournament.
type sqliteStore struct {
	gormReader
	db *gorm.DB

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewSQLiteStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&stageRow{}, &matchRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &sqliteStore{
		gormReader: gormReader{db: db},
		db:         db,
		locks:      make(map[int]*sync.Mutex),
	}, nil
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *sqliteStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTx{gormReader: gormReader{db: tx}})
	})
}

func (s *sqliteStore) RunGeneration(ctx context.Context, tournamentID int, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	lock, ok := s.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tournamentID] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return ErrGenerationLocked
	}
	defer lock.Unlock()

	return s.RunInTx(ctx, fn)
}

type gormReader struct {
	db *gorm.DB
}

func (r gormReader) ListStages(ctx context.Context, tournamentID int) ([]*models.Stage, error) {
	var rows []stageRow
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("stage_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stages for tournament %d: %w", tournamentID, err)
	}

	stages := make([]*models.Stage, 0, len(rows))
	for _, row := range rows {
		stages = append(stages, row.toModel())
	}
	return stages, nil
}

func (r gormReader) ListMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	var rows []matchRow
	err := r.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("stage_id, round, position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}

	matches := make([]*models.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, row.toModel())
	}
	return matches, nil
}

func (r gormReader) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var row matchRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return row.toModel(), nil
}

type gormTx struct {
	gormReader
}

func (t *gormTx) DeleteBracket(ctx context.Context, tournamentID int) error {
	if err := t.db.WithContext(ctx).Where("tournament_id = ?", tournamentID).Delete(&matchRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete matches of tournament %d: %w", tournamentID, err)
	}
	if err := t.db.WithContext(ctx).Where("tournament_id = ?", tournamentID).Delete(&stageRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete stages of tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (t *gormTx) CreateStage(ctx context.Context, s *models.Stage) error {
	row := toStageRow(s)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert stage %s: %w", s.Name, err)
	}
	return nil
}

func (t *gormTx) CreateMatches(ctx context.Context, matches []*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	rows := make([]matchRow, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, toMatchRow(m))
	}
	if err := t.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert matches: %w", err)
	}
	return nil
}

// LockBracket and LockMatches have nothing to do: the store runs on a single
// connection, so its transactions never overlap.
func (t *gormTx) LockBracket(context.Context, int) error { return nil }

func (t *gormTx) LockMatches(context.Context, []string) error { return nil }

func (t *gormTx) UpdateMatch(ctx context.Context, m *models.Match) error {
	res := t.db.WithContext(ctx).
		Model(&matchRow{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]interface{}{
			"team_a_id":    m.TeamAID,
			"team_b_id":    m.TeamBID,
			"vacant_a":     m.VacantA,
			"vacant_b":     m.VacantB,
			"status":       string(m.Status),
			"score_a":      m.ScoreA,
			"score_b":      m.ScoreB,
			"winner_id":    m.WinnerID,
			"loser_id":     m.LoserID,
			"is_bye":       m.IsBye,
			"scheduled_at": m.ScheduledAt,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   m.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update match %s: %w", m.Code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("match %s at version %d: %w", m.Code, m.Version, ErrMatchVersionConflict)
	}
	m.Version++
	return nil
}
