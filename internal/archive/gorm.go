package archive

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GameRecord struct {
	ID             uint   `gorm:"primaryKey"`
	RoomCode       string `gorm:"size:6;index"`
	TotalQuestions int
	FinishedAt     time.Time `gorm:"index"`
	Standings      []StandingRecord `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}

type StandingRecord struct {
	ID       uint `gorm:"primaryKey"`
	GameID   uint `gorm:"index"`
	Position int
	Name     string `gorm:"size:64"`
	Score    int
}

// GormStore writes finished games to Postgres.
type GormStore struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}
	if err := db.AutoMigrate(&GameRecord{}, &StandingRecord{}); err != nil {
		return nil, fmt.Errorf("migrating archive db: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Record(ctx context.Context, res GameResult) error {
	rec := toRecord(res)
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Recent returns the latest finished games, newest first.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]GameRecord, error) {
	var out []GameRecord
	err := s.db.WithContext(ctx).
		Preload("Standings", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("finished_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(res GameResult) GameRecord {
	rec := GameRecord{
		RoomCode:       res.RoomCode,
		TotalQuestions: res.TotalQuestions,
		FinishedAt:     res.FinishedAt,
		Standings:      make([]StandingRecord, 0, len(res.Standings)),
	}
	for i, st := range res.Standings {
		rec.Standings = append(rec.Standings, StandingRecord{Position: i + 1, Name: st.Name, Score: st.Score})
	}
	return rec
}
