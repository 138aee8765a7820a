package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/medicine"
)

// MedicinesKey is the single key holding the serialized medicine list
const MedicinesKey = "user_medicines"

const defaultProfileID = "default"

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
}

// New opens both databases from configuration
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "medreminder.db")
	}

	dsn := sqlitePath + "?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	if cfg.Storage.InMemory {
		dsn = ":memory:"
	}

	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if cfg.Storage.InMemory {
		// every pooled connection would otherwise see its own empty database
		sqliteDB.SetMaxOpenConns(1)
	} else {
		sqliteDB.SetMaxOpenConns(10)
		sqliteDB.SetMaxIdleConns(5)
		sqliteDB.SetConnMaxLifetime(time.Hour)
	}

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
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
	if cfg.Storage.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return NewWithDB(db, badgerDB)
}

// NewWithDB wraps already opened databases and migrates the schema
func NewWithDB(db *gorm.DB, badgerDB *badger.DB) (*Store, error) {
	if err := db.AutoMigrate(&ProfileRecord{}, &NotificationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Store{
		db:     db,
		badger: badgerDB,
	}, nil
}

// Close closes all database connections
func (s *Store) Close() error {
	var errs []error
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	errs = append(errs, s.badger.Close())
	return errors.Join(errs...)
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Medicine List (BadgerDB) ====================

// LoadMedicines reads the whole medicine list. A missing key is an empty list.
func (s *Store) LoadMedicines() ([]medicine.Medicine, error) {
	data, err := s.GetKV(MedicinesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read medicines: %w", err)
	}
	if data == nil {
		return []medicine.Medicine{}, nil
	}

	var meds []medicine.Medicine
	if err := json.Unmarshal(data, &meds); err != nil {
		return nil, fmt.Errorf("failed to decode medicines: %w", err)
	}
	return meds, nil
}

// SaveMedicines rewrites the whole medicine list
func (s *Store) SaveMedicines(meds []medicine.Medicine) error {
	if meds == nil {
		meds = []medicine.Medicine{}
	}
	data, err := json.Marshal(meds)
	if err != nil {
		return fmt.Errorf("failed to encode medicines: %w", err)
	}
	return s.SetKV(MedicinesKey, data)
}

// GetMedicine returns the medicine with the given ID, or nil when absent
func (s *Store) GetMedicine(id string) (*medicine.Medicine, error) {
	meds, err := s.LoadMedicines()
	if err != nil {
		return nil, err
	}
	for i := range meds {
		if meds[i].ID == id {
			return &meds[i], nil
		}
	}
	return nil, nil
}

// SaveMedicine replaces the entry with the same ID or appends a new one.
// Concurrent writers are not guarded against; the last full-list write wins.
func (s *Store) SaveMedicine(med medicine.Medicine) error {
	meds, err := s.LoadMedicines()
	if err != nil {
		return err
	}

	replaced := false
	for i := range meds {
		if meds[i].ID == med.ID {
			meds[i] = med
			replaced = true
			break
		}
	}
	if !replaced {
		meds = append(meds, med)
	}

	return s.SaveMedicines(meds)
}

// DeleteMedicine removes the entry with the given ID. Unknown IDs are not an error.
func (s *Store) DeleteMedicine(id string) error {
	meds, err := s.LoadMedicines()
	if err != nil {
		return err
	}

	kept := meds[:0]
	for _, m := range meds {
		if m.ID != id {
			kept = append(kept, m)
		}
	}

	return s.SaveMedicines(kept)
}

// ==================== Profile Methods ====================

// SaveProfile creates or overwrites the singleton profile
func (s *Store) SaveProfile(rec *ProfileRecord) error {
	rec.ID = defaultProfileID
	return s.db.Save(rec).Error
}

// LoadProfile returns the profile, or nil when none has been saved
func (s *Store) LoadProfile() (*ProfileRecord, error) {
	var rec ProfileRecord
	err := s.db.Where("id = ?", defaultProfileID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteProfile removes the profile
func (s *Store) DeleteProfile() error {
	return s.db.Where("id = ?", defaultProfileID).Delete(&ProfileRecord{}).Error
}

// ==================== Notification Methods ====================

// SaveNotification persists a registry entry
func (s *Store) SaveNotification(rec *NotificationRecord) error {
	return s.db.Save(rec).Error
}

// ListNotifications returns every registry entry ordered by creation
func (s *Store) ListNotifications() ([]NotificationRecord, error) {
	var recs []NotificationRecord
	err := s.db.Order("created_at ASC").Find(&recs).Error
	return recs, err
}

// DeleteNotification removes a registry entry
func (s *Store) DeleteNotification(id string) error {
	return s.db.Where("id = ?", id).Delete(&NotificationRecord{}).Error
}

// ==================== KV Methods (BadgerDB) ====================

// SetKV stores a key-value pair
func (s *Store) SetKV(key string, value []byte) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("kv:"+key), value)
	})
}

// GetKV retrieves a value by key. A missing key yields nil, nil.
func (s *Store) GetKV(key string) ([]byte, error) {
	var val []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("kv:" + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = append([]byte{}, v...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}
