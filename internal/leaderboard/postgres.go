package leaderboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type scoreRow struct {
	ID        int64     `gorm:"primaryKey"`
	Nickname  string    `gorm:"size:32;not null"`
	Game      string    `gorm:"size:32;not null;index:idx_game_score,priority:1"`
	Score     int       `gorm:"not null;index:idx_game_score,priority:2,sort:desc"`
	CreatedAt time.Time `gorm:"not null"`
}

func (scoreRow) TableName() string { return "scores" }

// PostgresStore is the shared backend for multi-instance deployments.
type PostgresStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string, log *zap.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("leaderboard: DATABASE_URL is required for postgres")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&scoreRow{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info("postgres leaderboard ready")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, e Entry) (int64, error) {
	row := scoreRow{Nickname: e.Nickname, Game: e.Game, Score: e.Score, CreatedAt: e.CreatedAt}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *PostgresStore) Top(ctx context.Context, game string, limit int) ([]Entry, error) {
	var rows []scoreRow
	err := s.db.WithContext(ctx).
		Where("game = ?", game).
		Order("score DESC").
		Order("created_at ASC").
		Limit(ClampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:        r.ID,
			Nickname:  r.Nickname,
			Game:      r.Game,
			Score:     r.Score,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
