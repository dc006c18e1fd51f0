package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/epi-age-comparison/internal/epidemic"
)

// SQLiteStore persists comparisons in a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	maxHistory int
}

type diffPayload struct {
	Hospitalizations epidemic.SeriesDiff `json:"hospitalizations"`
	Deaths           epidemic.SeriesDiff `json:"deaths"`
	Symptoms         epidemic.SeriesDiff `json:"symptoms"`
}

// OpenSQLite opens (and migrates) the database at path. maxHistory <= 0 keeps
// every comparison.
func OpenSQLite(path string, maxHistory int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	comparisonTable := `
	CREATE TABLE IF NOT EXISTS comparisons (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		region TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS comparisons_region ON comparisons (region, seq);
	`
	if _, err := db.Exec(comparisonTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db, maxHistory: maxHistory}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveComparison stores c and enforces retention for its region.
func (s *SQLiteStore) SaveComparison(c epidemic.Comparison) error {
	payload, err := json.Marshal(diffPayload{
		Hospitalizations: c.Hospitalizations,
		Deaths:           c.Deaths,
		Symptoms:         c.Symptoms,
	})
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO comparisons (id, region, start_date, end_date, computed_at, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Region, c.Start.Format(epidemic.DateLayout), c.End.Format(epidemic.DateLayout),
		c.ComputedAt.UTC().Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return err
	}

	if s.maxHistory > 0 {
		_, err = s.db.Exec(`DELETE FROM comparisons WHERE region = ? AND seq NOT IN (
			SELECT seq FROM comparisons WHERE region = ? ORDER BY seq DESC LIMIT ?)`,
			c.Region, c.Region, s.maxHistory)
	}
	return err
}

// GetLatest returns the most recently saved comparison for a region.
func (s *SQLiteStore) GetLatest(region string) (epidemic.Comparison, error) {
	row := s.db.QueryRow(`SELECT id, region, start_date, end_date, computed_at, payload
		FROM comparisons WHERE region = ? ORDER BY seq DESC LIMIT 1`, region)

	c, err := scanComparison(row)
	if errors.Is(err, sql.ErrNoRows) {
		return epidemic.Comparison{}, ErrNotFound
	}
	return c, err
}

// List returns all retained comparisons for a region, oldest first.
func (s *SQLiteStore) List(region string) ([]epidemic.Comparison, error) {
	rows, err := s.db.Query(`SELECT id, region, start_date, end_date, computed_at, payload
		FROM comparisons WHERE region = ? ORDER BY seq ASC`, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []epidemic.Comparison
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComparison(sc scanner) (epidemic.Comparison, error) {
	var (
		c                    epidemic.Comparison
		start, end, computed string
		payload              string
	)
	if err := sc.Scan(&c.ID, &c.Region, &start, &end, &computed, &payload); err != nil {
		return epidemic.Comparison{}, err
	}

	var err error
	if c.Start, err = time.Parse(epidemic.DateLayout, start); err != nil {
		return epidemic.Comparison{}, err
	}
	if c.End, err = time.Parse(epidemic.DateLayout, end); err != nil {
		return epidemic.Comparison{}, err
	}
	if c.ComputedAt, err = time.Parse(time.RFC3339Nano, computed); err != nil {
		return epidemic.Comparison{}, err
	}

	var p diffPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return epidemic.Comparison{}, err
	}
	c.Hospitalizations = p.Hospitalizations
	c.Deaths = p.Deaths
	c.Symptoms = p.Symptoms
	return c, nil
}
