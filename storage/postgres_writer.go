package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"suumo-analysis/models"
)

// listingColumns is the insert column order; it must match listingArgs.
var listingColumns = []string{
	"building_name", "category", "address", "layout", "area", "floor", "stories", "age",
	"rent", "admin_fee", "deposit", "gratuity",
	"access_1_station", "access_1_walk_min", "access_1_time_min", "access_1_transfer_count",
	"access_2_station", "access_2_walk_min", "access_2_time_min", "access_2_transfer_count",
	"access_3_station", "access_3_walk_min", "access_3_time_min", "access_3_transfer_count",
	"url", "acquired_at",
}

// PostgresWriter mirrors the enriched listing table into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS rental_listings (
			id                      SERIAL PRIMARY KEY,
			building_name           TEXT          NOT NULL,
			category                TEXT          NOT NULL DEFAULT '',
			address                 TEXT          NOT NULL DEFAULT '',
			layout                  TEXT          NOT NULL DEFAULT '',
			area                    NUMERIC(8,2)  NOT NULL DEFAULT 0,
			floor                   NUMERIC(4,0),
			stories                 NUMERIC(4,0),
			age                     NUMERIC(4,0)  NOT NULL DEFAULT 0,
			rent                    NUMERIC(12,0) NOT NULL DEFAULT 0,
			admin_fee               NUMERIC(12,0) NOT NULL DEFAULT 0,
			deposit                 NUMERIC(12,0) NOT NULL DEFAULT 0,
			gratuity                NUMERIC(12,0) NOT NULL DEFAULT 0,
			access_1_station        TEXT,
			access_1_walk_min       NUMERIC(4,0),
			access_1_time_min       NUMERIC(6,1),
			access_1_transfer_count NUMERIC(3,0),
			access_2_station        TEXT,
			access_2_walk_min       NUMERIC(4,0),
			access_2_time_min       NUMERIC(6,1),
			access_2_transfer_count NUMERIC(3,0),
			access_3_station        TEXT,
			access_3_walk_min       NUMERIC(4,0),
			access_3_time_min       NUMERIC(6,1),
			access_3_transfer_count NUMERIC(3,0),
			url                     TEXT          UNIQUE NOT NULL,
			acquired_at             TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_rental_listings_rent      ON rental_listings(rent);
		CREATE INDEX IF NOT EXISTS idx_rental_listings_station_1 ON rental_listings(access_1_station);
	`)
	return err
}

// Clear deletes all existing listings from the table.
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM rental_listings")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write batch-inserts all enriched listings, clearing old data first.
// Repeated detail URLs keep their first row.
func (pw *PostgresWriter) Write(listings []*models.EnrichedListing) error {
	if len(listings) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := min(i+batchSize, len(listings))
		query, args := buildInsert(listings[i:end])
		if _, err := pw.db.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// Count returns the number of stored listings.
func (pw *PostgresWriter) Count() (int, error) {
	var n int
	if err := pw.db.QueryRow("SELECT COUNT(*) FROM rental_listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// buildInsert renders one multi-row INSERT with positional placeholders.
func buildInsert(batch []*models.EnrichedListing) (string, []interface{}) {
	width := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*width)

	for idx, l := range batch {
		ph := make([]string, width)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", idx*width+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, listingArgs(l)...)
	}

	query := fmt.Sprintf(`
		INSERT INTO rental_listings (%s)
		VALUES %s
		ON CONFLICT (url) DO NOTHING
	`, strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs
}

func listingArgs(l *models.EnrichedListing) []interface{} {
	args := []interface{}{
		l.BuildingName, l.Category, l.Address, l.Layout, l.Area, l.Floor, l.Stories, l.Age,
		l.Rent, l.AdminFee, l.Deposit, l.Gratuity,
	}
	for i := 0; i < models.AccessSlots; i++ {
		var station interface{}
		if s := l.Access[i].Station; s != "" {
			station = s
		}
		args = append(args, station, l.Access[i].WalkMin, l.Transit[i].TimeMin, l.Transit[i].TransferCount)
	}
	return append(args, l.URL, l.AcquiredAt)
}
