// Package storage keeps the lookup audit log in SQLite.
// Only lookup outcomes are stored; node configurations are never persisted.
package storage

import (
	"database/sql"
	"time"

	"github.com/woozymasta/laval/internal/models"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// New opens the audit database at dbPath and applies pending migrations.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordLookup appends one lookup outcome to the audit log.
func (r *Repository) RecordLookup(l models.Lookup) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO lookups (node_name, outcome, message, duration_ms, created_at) VALUES (?, ?, ?, ?, ?)`,
		l.NodeName, string(l.Outcome), l.Message, l.DurationMs, l.CreatedAt,
	)

	return err
}

// RecentLookups returns up to limit records, newest first.
func (r *Repository) RecentLookups(limit int) ([]models.Lookup, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, node_name, outcome, message, duration_ms, created_at
		FROM lookups
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lookups := []models.Lookup{}
	for rows.Next() {
		var (
			l       models.Lookup
			outcome string
		)
		if err := rows.Scan(&l.ID, &l.NodeName, &outcome, &l.Message, &l.DurationMs, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.Outcome = models.Outcome(outcome)
		lookups = append(lookups, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lookups, nil
}

// PruneLookups deletes records created before cutoff and returns how many were removed.
func (r *Repository) PruneLookups(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM lookups WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
