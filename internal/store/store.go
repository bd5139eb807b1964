package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/pkg/types"
)

var ErrNoDatabase = errors.New("no database configured")

// ResultStore persists finished rounds.
type ResultStore interface {
	SaveResult(ctx context.Context, r engine.RoundResult) error
}

type Paragraph struct {
	ID        uint   `gorm:"primaryKey"`
	Text      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

type RoundResult struct {
	ID          string             `gorm:"primaryKey;type:uuid"`
	RoomID      string             `gorm:"index;not null"`
	SessionID   string             `gorm:"type:uuid;not null"`
	Round       int                `gorm:"not null"`
	Paragraph   string             `gorm:"not null"`
	WinnerID    string
	WinnerName  string
	WinnerScore int
	FinishedAt  time.Time          `gorm:"index"`
	Entries     []RoundResultEntry `gorm:"constraint:OnDelete:CASCADE"`
}

type RoundResultEntry struct {
	ID            uint   `gorm:"primaryKey"`
	RoundResultID string `gorm:"type:uuid;index;not null"`
	Position      int    `gorm:"not null"`
	ParticipantID string `gorm:"not null"`
	Name          string
	Score         int
}

// Store is the postgres-backed catalogue of paragraphs and round results.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, ErrNoDatabase
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Paragraph{}, &RoundResult{}, &RoundResultEntry{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// LoadParagraphs returns every stored paragraph, seeding the table with seed
// when it is empty.
func (s *Store) LoadParagraphs(ctx context.Context, seed []string) ([]string, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Paragraph{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count paragraphs: %w", err)
	}
	if count == 0 && len(seed) > 0 {
		rows := make([]Paragraph, 0, len(seed))
		for _, t := range seed {
			rows = append(rows, Paragraph{Text: t})
		}
		if err := db.Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("seed paragraphs: %w", err)
		}
	}

	var texts []string
	if err := db.Model(&Paragraph{}).Order("id").Pluck("text", &texts).Error; err != nil {
		return nil, fmt.Errorf("load paragraphs: %w", err)
	}
	return texts, nil
}

func (s *Store) SaveResult(ctx context.Context, r engine.RoundResult) error {
	row := toRow(r)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("save result for room %s round %d: %w", r.RoomID, r.Round, err)
	}
	return nil
}

// RecentResults lists the latest results for a room, newest first.
func (s *Store) RecentResults(ctx context.Context, roomID string, limit int) ([]engine.RoundResult, error) {
	var rows []RoundResult
	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("room_id = ?", roomID).
		Order("finished_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	return lo.Map(rows, func(row RoundResult, _ int) engine.RoundResult { return fromRow(row) }), nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(r engine.RoundResult) RoundResult {
	row := RoundResult{
		ID:         uuid.NewString(),
		RoomID:     r.RoomID,
		SessionID:  r.SessionID,
		Round:      r.Round,
		Paragraph:  r.Paragraph,
		FinishedAt: r.FinishedAt,
	}
	if r.HasWinner {
		row.WinnerID = r.Winner.ID
		row.WinnerName = r.Winner.Name
		row.WinnerScore = r.Winner.Score
	}
	for i, p := range r.Standings {
		row.Entries = append(row.Entries, RoundResultEntry{
			RoundResultID: row.ID,
			Position:      i,
			ParticipantID: p.ID,
			Name:          p.Name,
			Score:         p.Score,
		})
	}
	return row
}

func fromRow(row RoundResult) engine.RoundResult {
	standings := lo.Map(row.Entries, func(e RoundResultEntry, _ int) types.Participant {
		return types.Participant{ID: e.ParticipantID, Name: e.Name, Score: e.Score}
	})
	return engine.NewRoundResult(row.RoomID, row.SessionID, row.Round, row.Paragraph, standings, row.FinishedAt)
}
