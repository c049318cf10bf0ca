package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RunRecord struct {
	ID         string `gorm:"primaryKey"`
	Project    string
	Algorithm  string
	ConfigName string
	Checkpoint string
	StartedAt  time.Time
	FinishedAt *time.Time
}

func (RunRecord) TableName() string { return "runs" }

type MetricRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"index"`
	Step      int
	Name      string
	Value     float64
	CreatedAt time.Time
}

func (MetricRecord) TableName() string { return "run_metrics" }

// Store keeps runs and their per-video metrics in a local sqlite file.
type Store struct {
	db *gorm.DB
}

func OpenStore(dsn string) (*Store, error) {
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", dsn, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&RunRecord{}, &MetricRecord{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) GetRun(id string) (RunRecord, error) {
	var run RunRecord
	err := s.db.First(&run, "id = ?", id).Error
	return run, err
}

func (s *Store) ListMetrics(runID string) ([]MetricRecord, error) {
	var metrics []MetricRecord
	err := s.db.Where("run_id = ?", runID).Order("step, name").Find(&metrics).Error
	return metrics, err
}

// Init implements RunLogger.
func (s *Store) Init(ctx context.Context, project string, meta RunMetadata) (Run, error) {
	record := RunRecord{
		ID:         uuid.NewString(),
		Project:    project,
		Algorithm:  meta.Algorithm,
		ConfigName: meta.Config,
		Checkpoint: meta.Checkpoint,
		StartedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &storeRun{db: s.db, id: record.ID}, nil
}

type storeRun struct {
	db *gorm.DB
	id string
}

func (r *storeRun) ID() string { return r.id }

func (r *storeRun) Log(step int, metrics Metrics) error {
	if len(metrics) == 0 {
		return nil
	}
	records := make([]MetricRecord, 0, len(metrics))
	for _, name := range metrics.Keys() {
		records = append(records, MetricRecord{
			RunID: r.id,
			Step:  step,
			Name:  name,
			Value: metrics[name],
		})
	}
	return r.db.Create(&records).Error
}

func (r *storeRun) Finish() error {
	now := time.Now()
	return r.db.Model(&RunRecord{}).Where("id = ?", r.id).Update("finished_at", &now).Error
}
