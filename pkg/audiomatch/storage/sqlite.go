// Package storage persists completed match runs to SQLite so batch jobs
// can be audited and re-queried after the fact.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/techno-hippies/karaoke-school/pkg/audiomatch/model"
)

const DefaultDBFile = "matchruns.sqlite3"

// MatchRun is one stored pipeline run. The nullable columns preserve the
// raw sub-results from each signal; a NULL group means that signal was
// unavailable for the run.
type MatchRun struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	SourceFile string `gorm:"index:idx_source"`
	ClipFile   string
	Method     string `gorm:"index:idx_method"`

	CropStart    float64
	CropEnd      float64
	CropDuration float64
	MatchStart   float64
	MatchEnd     float64
	BufferStart  float64
	BufferEnd    float64
	Confidence   float64

	DTWStart      *float64
	DTWEnd        *float64
	DTWConfidence *float64
	DTWCost       *float64

	STTStart      *float64
	STTEnd        *float64
	STTConfidence *float64

	CreatedAt time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	DB *gorm.DB
	db *sql.DB
}

// NewStore opens (creating if needed) the run database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&MatchRun{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{DB: db, db: sqlDB}, nil
}

// SaveRun persists one report.
func (s *Store) SaveRun(report *model.CropReport) error {
	if s == nil || s.DB == nil {
		return errors.New("store is nil")
	}
	run := rowFromReport(report)
	if err := s.DB.Create(&run).Error; err != nil {
		return fmt.Errorf("inserting run %s: %w", report.RunID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(limit int) ([]model.CropReport, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is nil")
	}
	q := s.DB.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []MatchRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	reports := make([]model.CropReport, len(runs))
	for i, run := range runs {
		reports[i] = reportFromRow(run)
	}
	return reports, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func rowFromReport(r *model.CropReport) MatchRun {
	run := MatchRun{
		ID:           r.RunID,
		SourceFile:   r.SourceFile,
		ClipFile:     r.ClipFile,
		Method:       r.Method,
		CropStart:    r.CropStart,
		CropEnd:      r.CropEnd,
		CropDuration: r.CropDuration,
		MatchStart:   r.MatchStart,
		MatchEnd:     r.MatchEnd,
		BufferStart:  r.BufferStart,
		BufferEnd:    r.BufferEnd,
		Confidence:   r.Confidence,
	}
	if r.DTW != nil {
		run.DTWStart = ptr(r.DTW.Start)
		run.DTWEnd = ptr(r.DTW.End)
		run.DTWConfidence = ptr(r.DTW.Confidence)
		run.DTWCost = r.DTW.Cost
	}
	if r.STT != nil {
		run.STTStart = ptr(r.STT.Start)
		run.STTEnd = ptr(r.STT.End)
		run.STTConfidence = ptr(r.STT.Confidence)
	}
	return run
}

func reportFromRow(run MatchRun) model.CropReport {
	report := model.CropReport{
		RunID:        run.ID,
		SourceFile:   run.SourceFile,
		ClipFile:     run.ClipFile,
		Method:       run.Method,
		CropStart:    run.CropStart,
		CropEnd:      run.CropEnd,
		CropDuration: run.CropDuration,
		MatchStart:   run.MatchStart,
		MatchEnd:     run.MatchEnd,
		BufferStart:  run.BufferStart,
		BufferEnd:    run.BufferEnd,
		Confidence:   run.Confidence,
	}
	if run.DTWStart != nil {
		report.DTW = &model.SignalResult{
			Start:      *run.DTWStart,
			End:        *run.DTWEnd,
			Confidence: *run.DTWConfidence,
			Cost:       run.DTWCost,
		}
	}
	if run.STTStart != nil {
		report.STT = &model.SignalResult{
			Start:      *run.STTStart,
			End:        *run.STTEnd,
			Confidence: *run.STTConfidence,
		}
	}
	return report
}

func ptr(v float64) *float64 { return &v }
