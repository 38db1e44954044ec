package records

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// LedgerFileName is the sqlite file kept inside each working directory.
const LedgerFileName = ".translation_records.db"

const customTermsKey = "custom_terms"

type setting struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (setting) TableName() string {
	return "settings"
}

// SQLiteStore persists records and custom terms in the working directory.
type SQLiteStore struct {
	gdb *gorm.DB
}

// Open creates or opens the ledger of a working directory.
func Open(ctx context.Context, dir string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, fmt.Errorf("working directory is required")
	}

	path := filepath.Join(trimmed, LedgerFileName)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open record ledger %s: %w", path, err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(&Record{}, &setting{}); err != nil {
		return nil, fmt.Errorf("migrate record ledger: %w", err)
	}

	return &SQLiteStore{gdb: gdb}, nil
}

func (s *SQLiteStore) IsTranslated(ctx context.Context, filename string) (bool, error) {
	if s == nil || s.gdb == nil {
		return false, fmt.Errorf("record store is not initialized")
	}

	var count int64
	err := s.gdb.WithContext(ctx).
		Model(&Record{}).
		Where("filename = ?", filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("query record for %s: %w", filename, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) AddRecord(ctx context.Context, filename, sourceLang, targetLang string) error {
	if s == nil || s.gdb == nil {
		return fmt.Errorf("record store is not initialized")
	}
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("filename is required")
	}

	record := Record{
		Filename:     filename,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		TranslatedAt: time.Now().UTC(),
	}
	err := s.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "filename"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("insert record for %s: %w", filename, err)
	}
	return nil
}

func (s *SQLiteStore) Records(ctx context.Context) ([]Record, error) {
	if s == nil || s.gdb == nil {
		return nil, fmt.Errorf("record store is not initialized")
	}

	var rows []Record
	err := s.gdb.WithContext(ctx).
		Order("filename asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) ClearRecords(ctx context.Context) error {
	if s == nil || s.gdb == nil {
		return fmt.Errorf("record store is not initialized")
	}

	if err := s.gdb.WithContext(ctx).Where("1 = 1").Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveCustomTerms(ctx context.Context, terms string) error {
	if s == nil || s.gdb == nil {
		return fmt.Errorf("record store is not initialized")
	}

	row := setting{Key: customTermsKey, Value: terms}
	err := s.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save custom terms: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CustomTerms(ctx context.Context) (string, error) {
	if s == nil || s.gdb == nil {
		return "", fmt.Errorf("record store is not initialized")
	}

	var row setting
	err := s.gdb.WithContext(ctx).
		Where("key = ?", customTermsKey).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("load custom terms: %w", err)
	}
	return row.Value, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.gdb == nil {
		return nil
	}
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return fmt.Errorf("get ledger sql db: %w", err)
	}
	return sqlDB.Close()
}
