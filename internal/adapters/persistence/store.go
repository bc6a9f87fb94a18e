// Package persistence provides the valuation persistence collaborator:
// a fire-and-forget write-behind pipeline over a pluggable store.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/brickfield/appraisal/internal/domain/model"
)

// Store persists computed valuations. Failures are logged by the writer and
// never propagated to the caller of prediction.
type Store interface {
	Save(ctx context.Context, propertyID string, result model.EnsembleResult, raw map[string]any) error
}

// ValuationRecord is the stored shape of one valuation.
type ValuationRecord struct {
	ID              uint      `gorm:"primaryKey"`
	PropertyID      string    `gorm:"index"`
	PredictedValue  float64
	ConfidenceLower float64
	ConfidenceUpper float64
	ModelVersion    string
	RequestJSON     string `gorm:"type:text"`
	ResultJSON      string `gorm:"type:text"`
	CreatedAt       time.Time
}

// TableName keeps the table name stable regardless of struct renames.
func (ValuationRecord) TableName() string { return "valuations" }

// PostgresStore implements Store over gorm with the Postgres driver.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to dsn and migrates the valuations table.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := db.AutoMigrate(&ValuationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate valuations table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Save writes one valuation row.
func (s *PostgresStore) Save(ctx context.Context, propertyID string, result model.EnsembleResult, raw map[string]any) error {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode raw request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	record := ValuationRecord{
		PropertyID:      propertyID,
		PredictedValue:  result.PredictedValue,
		ConfidenceLower: result.Interval.Lower,
		ConfidenceUpper: result.Interval.Upper,
		ModelVersion:    result.ModelVersion,
		RequestJSON:     string(rawJSON),
		ResultJSON:      string(resultJSON),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// MemoryStore implements Store with an in-process slice. It backs tests and
// deployments without a database.
type MemoryStore struct {
	mu      sync.Mutex
	records []ValuationRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends one record.
func (m *MemoryStore) Save(_ context.Context, propertyID string, result model.EnsembleResult, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, ValuationRecord{
		PropertyID:      propertyID,
		PredictedValue:  result.PredictedValue,
		ConfidenceLower: result.Interval.Lower,
		ConfidenceUpper: result.Interval.Upper,
		ModelVersion:    result.ModelVersion,
		CreatedAt:       time.Now().UTC(),
	})
	return nil
}

// Records returns a snapshot of saved records.
func (m *MemoryStore) Records() []ValuationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ValuationRecord, len(m.records))
	copy(out, m.records)
	return out
}
