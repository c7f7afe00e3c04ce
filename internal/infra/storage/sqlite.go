package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"match_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal persists order submissions, match results and trades to SQLite.
// Submissions form the write-ahead log the book is rebuilt from; results
// and trades are the audit trail.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (or creates) the journal database. An empty path
// selects the per-user default location.
func NewJournal(path string) (*Journal, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.SubmissionRecord{}, &domain.MatchRecord{}, &domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Journal{db: db}, nil
}

// defaultDBPath resolves the database file path based on OS
func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "MatchGo", "data", "journal.db"), nil
}

// SaveSubmission appends one submission to the write-ahead log.
func (j *Journal) SaveSubmission(rec *domain.SubmissionRecord) error {
	return j.db.Create(rec).Error
}

// SaveResult persists a match result summary together with its trades.
func (j *Journal) SaveResult(res *domain.MatchResult) error {
	rec := &domain.MatchRecord{
		OrderID:         res.OrderID.String(),
		Side:            string(res.Side),
		OrderType:       string(res.OrderType),
		Status:          string(res.Status),
		Note:            res.Note,
		FilledVolume:    res.FilledVolume,
		RemainingVolume: res.RemainingVolume,
		AvgMatchPrice:   res.AvgMatchPrice.String(),
		CreatedAt:       res.Timestamp,
	}

	return j.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		for _, t := range res.Trades {
			row := &domain.TradeRecord{
				OffererID:  t.OffererID.String(),
				BidderID:   t.BidderID.String(),
				Price:      t.Price.String(),
				Volume:     t.Volume,
				ExecutedAt: t.Timestamp,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Submissions returns the full write-ahead log in sequence order.
func (j *Journal) Submissions() ([]domain.SubmissionRecord, error) {
	var recs []domain.SubmissionRecord
	err := j.db.Order("seq asc").Find(&recs).Error
	return recs, err
}

// RecentTrades returns the latest executed trades, newest first.
func (j *Journal) RecentTrades(limit int) ([]domain.TradeRecord, error) {
	var rows []domain.TradeRecord
	err := j.db.Order("id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// ResultFor fetches the persisted result summary for an order id.
// A missing row is returned as nil without error.
func (j *Journal) ResultFor(orderID string) (*domain.MatchRecord, error) {
	var rec domain.MatchRecord
	err := j.db.First(&rec, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
