package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrEmptyURL is returned when inserting a record without URL
	ErrEmptyURL = errors.New("record url is empty")
	// ErrEmptyFilter is returned when an update or delete would touch every record
	ErrEmptyFilter = errors.New("filter matches every record")
	// ErrNotFound is returned when a single record lookup finds nothing
	ErrNotFound = errors.New("record not found")
)

// Store persists analysis records in SQLite
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at dbPath and migrates the schema
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode enables concurrent reads and writes
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)

	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	if err := database.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: database}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) scoped(ctx context.Context, f Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Record{})
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.URL != "" {
		q = q.Where("url = ?", f.URL)
	}
	if f.Company != nil {
		if *f.Company == "" {
			q = q.Where("(company = '' OR company IS NULL)")
		} else {
			q = q.Where("company = ?", *f.Company)
		}
	}
	if f.Archived != nil {
		q = q.Where("archived = ?", *f.Archived)
	}
	return q
}

// Insert stores a new record. The ID and creation time are filled in when unset.
func (s *Store) Insert(ctx context.Context, r *Record) error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return ErrEmptyURL
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// Select returns the records matching f, newest first
func (s *Store) Select(ctx context.Context, f Filter) ([]Record, error) {
	records := []Record{}
	q := s.scoped(ctx, f).Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	return records, nil
}

// Get returns the record with the given id
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &r, nil
}

// Update applies p to every record matching f and returns the number changed
func (s *Store) Update(ctx context.Context, f Filter, p Patch) (int64, error) {
	if f.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	changes := map[string]interface{}{}
	if p.Archived != nil {
		changes["archived"] = *p.Archived
	}
	if len(changes) == 0 {
		return 0, nil
	}
	result := s.scoped(ctx, f).Updates(changes)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes every record matching f and returns the number removed
func (s *Store) Delete(ctx context.Context, f Filter) (int64, error) {
	if f.IsEmpty() {
		return 0, ErrEmptyFilter
	}
	result := s.scoped(ctx, f).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete records: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Companies summarises records per company, archived ones included
func (s *Store) Companies(ctx context.Context) ([]CompanySummary, error) {
	summaries := []CompanySummary{}
	err := s.db.WithContext(ctx).Model(&Record{}).
		Select("COALESCE(company, '') AS company, COUNT(*) AS total, " +
			"SUM(CASE WHEN archived THEN 1 ELSE 0 END) AS archived").
		Group("COALESCE(company, '')").
		Order("company").
		Scan(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return summaries, nil
}
