// Package tracker is the host layer: persistence, identifiers, clock,
// and the operations the API and CLI expose.
package tracker

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/meditrack/internal/config"
	"github.com/gmsas95/meditrack/internal/medicine"
)

// orderKey is the badger key holding the display order ID array.
const orderKey = "medicines:order"

// Store provides unified access to SQLite (records) and BadgerDB
// (presentation state).
type Store struct {
	db     *gorm.DB
	badger *badger.DB
}

// Open opens the databases under the configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "meditrack.db")
	}

	// Open SQLite with optimizations
	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Configure connection pool
	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return New(db, badgerDB)
}

// New wraps already opened databases and migrates the schema.
func New(db *gorm.DB, badgerDB *badger.DB) (*Store, error) {
	if err := db.AutoMigrate(&medicine.Medicine{}, &medicine.Intake{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db, badger: badgerDB}, nil
}

// Close closes all database connections.
func (s *Store) Close() error {
	return s.badger.Close()
}

// Medicine operations

func (s *Store) CreateMedicine(med *medicine.Medicine) error {
	if err := med.SerializeTimes(); err != nil {
		return err
	}
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()
	return s.db.Create(med).Error
}

func (s *Store) GetMedicine(id string) (*medicine.Medicine, error) {
	var med medicine.Medicine
	err := s.db.Where("id = ?", id).First(&med).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := med.DeserializeTimes(); err != nil {
		return nil, err
	}
	return &med, nil
}

func (s *Store) UpdateMedicine(med *medicine.Medicine) error {
	if err := med.SerializeTimes(); err != nil {
		return err
	}
	med.UpdatedAt = time.Now()
	return s.db.Save(med).Error
}

// DeleteMedicine removes a medicine and all its intakes in one
// transaction.
func (s *Store) DeleteMedicine(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medicine_id = ?", id).Delete(&medicine.Intake{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&medicine.Medicine{}).Error
	})
}

func (s *Store) ListMedicines() ([]*medicine.Medicine, error) {
	var meds []*medicine.Medicine
	if err := s.db.Order("created_at ASC").Find(&meds).Error; err != nil {
		return nil, err
	}
	for _, med := range meds {
		if err := med.DeserializeTimes(); err != nil {
			return nil, err
		}
	}
	return meds, nil
}

// Intake operations

// UpsertIntake inserts an intake or, when one already exists for the
// same (medicine, date, scheduled time) slot, replaces its outcome.
func (s *Store) UpsertIntake(in *medicine.Intake) error {
	in.CreatedAt = time.Now()
	in.UpdatedAt = time.Now()
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "medicine_id"}, {Name: "date"}, {Name: "scheduled_time"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "actual_time", "notes", "updated_at",
		}),
	}).Create(in).Error
}

func (s *Store) GetIntake(id string) (*medicine.Intake, error) {
	var in medicine.Intake
	err := s.db.Where("id = ?", id).First(&in).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// GetIntakeForDose looks up an intake by its schedule slot.
func (s *Store) GetIntakeForDose(medicineID, date, scheduledTime string) (*medicine.Intake, error) {
	var in medicine.Intake
	err := s.db.Where("medicine_id = ? AND date = ? AND scheduled_time = ?",
		medicineID, date, scheduledTime).First(&in).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (s *Store) DeleteIntake(id string) error {
	return s.db.Where("id = ?", id).Delete(&medicine.Intake{}).Error
}

// ListIntakes filters intakes by medicine and inclusive date range;
// empty parameters match everything.
func (s *Store) ListIntakes(medicineID, from, to string) ([]*medicine.Intake, error) {
	query := s.db.Model(&medicine.Intake{})
	if medicineID != "" {
		query = query.Where("medicine_id = ?", medicineID)
	}
	if from != "" {
		query = query.Where("date >= ?", from)
	}
	if to != "" {
		query = query.Where("date <= ?", to)
	}

	var intakes []*medicine.Intake
	err := query.Order("date ASC, scheduled_time ASC").Find(&intakes).Error
	return intakes, err
}

// Display order (badger)

// SaveOrder persists the medicine display order ID array.
func (s *Store) SaveOrder(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to serialize order: %w", err)
	}
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(orderKey), data)
	})
}

// GetOrder returns the saved display order, nil when none was saved.
func (s *Store) GetOrder() ([]string, error) {
	var ids []string
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(orderKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ids)
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
