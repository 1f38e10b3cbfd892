// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package partsdb is the persistent parts store: resolved part numbers saved
// after a pipeline run, looked up again before the next run hits the network.
package partsdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/parts-engine/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS parts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	description     TEXT NOT NULL,
	make            TEXT NOT NULL DEFAULT '',
	model           TEXT NOT NULL DEFAULT '',
	oem_part_number TEXT NOT NULL,
	manufacturer    TEXT NOT NULL DEFAULT '',
	alternates      TEXT NOT NULL DEFAULT '[]',
	confidence      REAL NOT NULL DEFAULT 0,
	validated       INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS parts_oem_idx ON parts(oem_part_number);
CREATE INDEX IF NOT EXISTS parts_equipment_idx ON parts(make, model);
`

// PartRecord is one stored resolution.
type PartRecord struct {
	ID            int64     `json:"id" yaml:"id"`
	Description   string    `json:"description" yaml:"description"`
	Make          string    `json:"make,omitempty" yaml:"make,omitempty"`
	Model         string    `json:"model,omitempty" yaml:"model,omitempty"`
	OEMPartNumber string    `json:"oem_part_number" yaml:"oem_part_number"`
	Manufacturer  string    `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Alternates    []string  `json:"alternates,omitempty" yaml:"alternates,omitempty"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
	Validated     bool      `json:"validated" yaml:"validated"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// Store wraps the SQLite parts database. Writes serialize per store so
// concurrent identical queries cannot race the exists-check.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (and if needed initializes) the parts database.
func Open(cfg types.DatabaseConfig) (*Store, error) {
	dsn := cfg.Path
	if dsn != ":memory:" && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening parts database %q: %w", cfg.Path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing parts schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SavePartMatch stores one resolved part. It is idempotent on the OEM part
// number: an existing row for the same identifier is left untouched and the
// call reports inserted=false.
func (s *Store) SavePartMatch(ctx context.Context, rec PartRecord) (inserted bool, err error) {
	if strings.TrimSpace(rec.OEMPartNumber) == "" {
		return false, fmt.Errorf("refusing to save empty part number")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parts WHERE oem_part_number = ?`, rec.OEMPartNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for existing part %q: %w", rec.OEMPartNumber, err)
	}
	if exists > 0 {
		return false, tx.Commit()
	}

	alternates, err := json.Marshal(alternatesOrEmpty(rec.Alternates))
	if err != nil {
		return false, fmt.Errorf("encoding alternates: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO parts (description, make, model, oem_part_number, manufacturer, alternates, confidence, validated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Description, rec.Make, rec.Model, rec.OEMPartNumber,
		rec.Manufacturer, string(alternates), rec.Confidence, rec.Validated)
	if err != nil {
		return false, fmt.Errorf("inserting part %q: %w", rec.OEMPartNumber, err)
	}
	return true, tx.Commit()
}

// Lookup tries an exact description+equipment match, then a fuzzy LIKE match
// on the description. A miss returns (nil, nil).
func (s *Store) Lookup(ctx context.Context, q types.Query) (*PartRecord, error) {
	rec, err := s.FindExact(ctx, q.Description, q.Make, q.Model)
	if err != nil || rec != nil {
		return rec, err
	}
	return s.FindFuzzy(ctx, q.Description, q.Make, q.Model)
}

// FindExact matches description, make, and model case-insensitively.
func (s *Store) FindExact(ctx context.Context, description, mk, model string) (*PartRecord, error) {
	return s.queryOne(ctx,
		`SELECT id, description, make, model, oem_part_number, manufacturer, alternates, confidence, validated, created_at
		 FROM parts
		 WHERE description = ? COLLATE NOCASE AND make = ? COLLATE NOCASE AND model = ? COLLATE NOCASE
		 ORDER BY confidence DESC LIMIT 1`,
		description, mk, model)
}

// FindFuzzy matches the description by substring within the same equipment.
func (s *Store) FindFuzzy(ctx context.Context, description, mk, model string) (*PartRecord, error) {
	return s.queryOne(ctx,
		`SELECT id, description, make, model, oem_part_number, manufacturer, alternates, confidence, validated, created_at
		 FROM parts
		 WHERE description LIKE ? AND make = ? COLLATE NOCASE AND model = ? COLLATE NOCASE
		 ORDER BY confidence DESC LIMIT 1`,
		"%"+description+"%", mk, model)
}

// FindByNumber looks one part up by its OEM number.
func (s *Store) FindByNumber(ctx context.Context, oem string) (*PartRecord, error) {
	return s.queryOne(ctx,
		`SELECT id, description, make, model, oem_part_number, manufacturer, alternates, confidence, validated, created_at
		 FROM parts WHERE oem_part_number = ? LIMIT 1`, oem)
}

// Count returns the number of stored parts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting parts: %w", err)
	}
	return n, nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...any) (*PartRecord, error) {
	var (
		rec        PartRecord
		alternates string
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.Description, &rec.Make, &rec.Model, &rec.OEMPartNumber,
		&rec.Manufacturer, &alternates, &rec.Confidence, &rec.Validated, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying parts: %w", err)
	}
	if err := json.Unmarshal([]byte(alternates), &rec.Alternates); err != nil {
		return nil, fmt.Errorf("decoding alternates for %q: %w", rec.OEMPartNumber, err)
	}
	return &rec, nil
}

func alternatesOrEmpty(alts []string) []string {
	if alts == nil {
		return []string{}
	}
	return alts
}
