// Package store keeps a SQLite history of runs, their records and their
// classified errors.
package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/user/nessus-authcheck/pkg/engine"
)

const batchSize = 500

// Run is one invocation of the pipeline
type Run struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
	InputDir  string
	Files     int
	Failed    int
	Records   []Record      `gorm:"constraint:OnDelete:CASCADE"`
	Errors    []ErrorRecord `gorm:"constraint:OnDelete:CASCADE"`
}

// Record is a stored engine.FlatRecord
type Record struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	Seq         int
	HostAddress string `gorm:"index"`
	ReportName  string
	Port        int
	ServiceName string
	Protocol    string
	PluginID    int `gorm:"index"`
	PluginName  string
	OutputText  string
}

// ErrorRecord is a stored engine.ClassifiedError
type ErrorRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"index"`
	Seq         int
	HostAddress string `gorm:"index"`
	ReportName  string
	Port        int
	ServiceName string
	PluginName  string
	Message     string
	OutputText  string
}

// Summary describes the run being saved
type Summary struct {
	ID       string
	InputDir string
	Files    int
	Failed   int
}

// Store is a gorm-backed run history
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates it
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}
	if err := db.AutoMigrate(&Run{}, &Record{}, &ErrorRecord{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return &Store{db: db}, nil
}

// SaveRun stores a run with its records and errors in one transaction
func (s *Store) SaveRun(sum Summary, records []engine.FlatRecord, errs []engine.ClassifiedError) error {
	run := Run{
		ID:       sum.ID,
		InputDir: sum.InputDir,
		Files:    sum.Files,
		Failed:   sum.Failed,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(records) > 0 {
			rows := make([]Record, len(records))
			for i, r := range records {
				rows[i] = Record{
					RunID:       run.ID,
					Seq:         i,
					HostAddress: r.HostAddress,
					ReportName:  r.ReportName,
					Port:        r.Port,
					ServiceName: r.ServiceName,
					Protocol:    r.Protocol,
					PluginID:    r.PluginID,
					PluginName:  r.PluginName,
					OutputText:  r.OutputText,
				}
			}
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return err
			}
		}
		if len(errs) > 0 {
			rows := make([]ErrorRecord, len(errs))
			for i, e := range errs {
				rows[i] = ErrorRecord{
					RunID:       run.ID,
					Seq:         i,
					HostAddress: e.HostAddress,
					ReportName:  e.ReportName,
					Port:        e.Port,
					ServiceName: e.ServiceName,
					PluginName:  e.PluginName,
					Message:     e.Message,
					OutputText:  e.OutputText,
				}
			}
			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(engine.ErrOutputWrite, "database run %s: %v", sum.ID, err)
	}
	return nil
}

// Runs lists stored runs, newest first
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// Errors returns the stored errors of a run in classification order
func (s *Store) Errors(runID string) ([]engine.ClassifiedError, error) {
	var rows []ErrorRecord
	if err := s.db.Where("run_id = ?", runID).Order("seq").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to load errors of run %s", runID)
	}
	out := make([]engine.ClassifiedError, len(rows))
	for i, r := range rows {
		out[i] = engine.ClassifiedError{
			HostAddress: r.HostAddress,
			ReportName:  r.ReportName,
			Port:        r.Port,
			ServiceName: r.ServiceName,
			PluginName:  r.PluginName,
			Message:     r.Message,
			OutputText:  r.OutputText,
		}
	}
	return out, nil
}

// CountRecords returns the number of stored records of a run
func (s *Store) CountRecords(runID string) (int64, error) {
	var n int64
	if err := s.db.Model(&Record{}).Where("run_id = ?", runID).Count(&n).Error; err != nil {
		return 0, errors.Wrapf(err, "failed to count records of run %s", runID)
	}
	return n, nil
}

// Close releases the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
