package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"suumo-analysis/models"
)

// SQLiteStationStore keeps the station-time table in a SQLite file.
// position preserves the store's append order across runs.
type SQLiteStationStore struct {
	db *sql.DB
}

// NewSQLiteStationStore opens (creating if needed) the database at path.
func NewSQLiteStationStore(path string) (*SQLiteStationStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single connection keeps :memory: databases alive between calls
	db.SetMaxOpenConns(1)

	s := &SQLiteStationStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStationStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS station_times (
			position           INTEGER PRIMARY KEY,
			station_name       TEXT    UNIQUE NOT NULL,
			time_to_target_min REAL,
			transfer_count     REAL
		);
	`)
	return err
}

// Load returns every stored station in position order.
func (s *SQLiteStationStore) Load() (*models.StationTimeStore, error) {
	rows, err := s.db.Query(`
		SELECT station_name, time_to_target_min, transfer_count
		FROM station_times
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load stations: %w", err)
	}
	defer rows.Close()

	store := models.NewStationTimeStore()
	for rows.Next() {
		var name string
		var timeMin, trans sql.NullFloat64
		if err := rows.Scan(&name, &timeMin, &trans); err != nil {
			return nil, fmt.Errorf("sqlite: scan station: %w", err)
		}
		store.Append(models.StationTime{
			StationName:   name,
			TimeMin:       nullable(timeMin),
			TransferCount: nullable(trans),
		})
	}
	return store, rows.Err()
}

// Save replaces the table contents with store in a single transaction.
func (s *SQLiteStationStore) Save(store *models.StationTimeStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM station_times"); err != nil {
		return fmt.Errorf("sqlite: clear stations: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO station_times (position, station_name, time_to_target_min, transfer_count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range store.Records() {
		if _, err := stmt.Exec(i, r.StationName, r.TimeMin, r.TransferCount); err != nil {
			return fmt.Errorf("sqlite: insert %q: %w", r.StationName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStationStore) Close() error {
	return s.db.Close()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
