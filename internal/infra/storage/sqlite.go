package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"deribit_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists trade records and daily summaries in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance. An empty path resolves
// to the OS user config directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite, no cgo
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.TradeRecord{}, &domain.DailySummary{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
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

	return filepath.Join(configDir, "DeribitGo", "data", "trades.db"), nil
}

// ======================================================================================
// Trade Operations
// ======================================================================================

// SaveTrade records an executed trade. Saving the same order id twice is
// safe: the record is keyed by order id and simply rewritten.
func (s *Storage) SaveTrade(rec *domain.TradeRecord) error {
	if err := s.db.Save(rec).Error; err != nil {
		return &domain.StoreError{Op: "save trade", Err: err}
	}
	return nil
}

// GetTrade retrieves a trade record by order id
func (s *Storage) GetTrade(orderID string) (*domain.TradeRecord, error) {
	var rec domain.TradeRecord
	err := s.db.First(&rec, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get trade", Err: err}
	}
	return &rec, nil
}

// ListTrades retrieves all recorded trades, oldest first
func (s *Storage) ListTrades() ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	if err := s.db.Order("executed_at asc").Find(&recs).Error; err != nil {
		return nil, &domain.StoreError{Op: "list trades", Err: err}
	}
	return recs, nil
}

// ======================================================================================
// Summary Operations
// ======================================================================================

// SaveSummary upserts a daily aggregate, keyed by customer/currency/exchange/date.
func (s *Storage) SaveSummary(sum *domain.DailySummary) error {
	if err := s.db.Save(sum).Error; err != nil {
		return &domain.StoreError{Op: "save summary", Err: err}
	}
	return nil
}

// GetSummary retrieves a daily aggregate, nil when absent
func (s *Storage) GetSummary(customerID, currency, exchangeID, date string) (*domain.DailySummary, error) {
	var sum domain.DailySummary
	err := s.db.First(&sum,
		"customer_id = ? AND currency = ? AND exchange_id = ? AND date = ?",
		customerID, currency, exchangeID, date,
	).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "get summary", Err: err}
	}
	return &sum, nil
}

// Close releases the underlying database handle
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
