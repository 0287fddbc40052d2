package storage

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/skypro1111/feelcard-service/internal/card"
)

// itemRecord is the row layout of the items table
type itemRecord struct {
	ID            string    `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"index"`
	Label         string
	Degree        float64
	UserUtterance string
	Summary       string
	ImagePrompt   string
	SpeechPrompt  string
	ImageRef      string
	AudioRef      string
}

func (itemRecord) TableName() string { return "items" }

func recordFromCard(c card.Card) itemRecord {
	return itemRecord{
		ID:            c.ID,
		CreatedAt:     c.CreatedAt.UTC(),
		Label:         string(c.Label),
		Degree:        c.Degree,
		UserUtterance: c.UserUtterance,
		Summary:       c.Summary,
		ImagePrompt:   c.ImagePrompt,
		SpeechPrompt:  c.SpeechPrompt,
		ImageRef:      c.ImageRef,
		AudioRef:      c.AudioRef,
	}
}

func (r itemRecord) card() card.Card {
	return card.New(r.ID, r.CreatedAt, card.Analysis{
		Label:         card.Label(r.Label),
		Degree:        r.Degree,
		UserUtterance: r.UserUtterance,
		Summary:       r.Summary,
		ImagePrompt:   r.ImagePrompt,
		SpeechPrompt:  r.SpeechPrompt,
	}, r.ImageRef, r.AudioRef)
}

// SQLIndex stores cards in a SQLite database file
type SQLIndex struct {
	db *gorm.DB
}

// NewSQLIndex opens (creating if needed) the database at path and migrates
// the items table
func NewSQLIndex(path string) (*SQLIndex, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&itemRecord{}); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &SQLIndex{db: db}, nil
}

func (s *SQLIndex) Save(ctx context.Context, c card.Card) error {
	record := recordFromCard(c)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return card.Fail(card.KindStorage, "save item", err)
	}
	return nil
}

func (s *SQLIndex) List(ctx context.Context, limit int) ([]card.Card, error) {
	limit = normalizeLimit(limit)
	if limit == 0 {
		return []card.Card{}, nil
	}

	var records []itemRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, card.Fail(card.KindStorage, "list items", err)
	}

	cards := make([]card.Card, 0, len(records))
	for _, r := range records {
		cards = append(cards, r.card())
	}
	return cards, nil
}

func (s *SQLIndex) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLIndex) Kind() string { return "sqlite" }

func (s *SQLIndex) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
