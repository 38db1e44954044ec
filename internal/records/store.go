package records

import (
	"context"
	"time"
)

// Record is one row of the per-directory translation ledger. Existence of a
// row means the chapter is already translated; the language pair is kept for
// reporting only and takes no part in the skip check.
type Record struct {
	Filename     string    `gorm:"primaryKey;column:filename" json:"filename"`
	SourceLang   string    `gorm:"column:source_lang" json:"source_lang"`
	TargetLang   string    `gorm:"column:target_lang" json:"target_lang"`
	TranslatedAt time.Time `gorm:"column:translated_at" json:"translated_at"`
}

func (Record) TableName() string {
	return "translation_records"
}

// Store is the persistent ledger consumed by the batch orchestrator.
type Store interface {
	IsTranslated(ctx context.Context, filename string) (bool, error)
	AddRecord(ctx context.Context, filename, sourceLang, targetLang string) error
	Records(ctx context.Context) ([]Record, error)
	ClearRecords(ctx context.Context) error
	SaveCustomTerms(ctx context.Context, terms string) error
	CustomTerms(ctx context.Context) (string, error)
	Close() error
}
