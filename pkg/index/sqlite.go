package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteCatalogStore persists every catalog in a single SQLite database.
type SQLiteCatalogStore struct {
	db *sql.DB
}

// NewSQLiteCatalogStore opens (or creates) the catalog database at dbPath.
// Use ":memory:" for an in-memory database (useful for testing).
// If the file doesn't exist, it will be created along with parent directories.
func NewSQLiteCatalogStore(dbPath string) (*SQLiteCatalogStore, error) {
	inMemory := strings.HasPrefix(dbPath, ":memory:")
	if !inMemory {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
			}
		}
		log.Info().Str("path", dbPath).Msg("opening sqlite catalog store")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteCatalogStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite db: %w", err)
	}

	return store, nil
}

// migrate creates the necessary tables and indexes
func (s *SQLiteCatalogStore) migrate() error {
	statements := []string{
		// One row per (index, id, value); value indexes hold a single row per id
		`CREATE TABLE IF NOT EXISTS catalog_entries (
			catalog TEXT NOT NULL,
			index_name TEXT NOT NULL,
			intid INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (catalog, index_name, intid, value)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_value ON catalog_entries(catalog, index_name, value)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_entries_intid ON catalog_entries(catalog, intid)`,

		// Registered topic filters
		`CREATE TABLE IF NOT EXISTS catalog_filters (
			catalog TEXT NOT NULL,
			index_name TEXT NOT NULL,
			filter TEXT NOT NULL,
			PRIMARY KEY (catalog, index_name, filter)
		)`,

		// Topic filter membership
		`CREATE TABLE IF NOT EXISTS catalog_filter_ids (
			catalog TEXT NOT NULL,
			index_name TEXT NOT NULL,
			filter TEXT NOT NULL,
			intid INTEGER NOT NULL,
			PRIMARY KEY (catalog, index_name, filter, intid),
			FOREIGN KEY (catalog, index_name, filter)
				REFERENCES catalog_filters(catalog, index_name, filter) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_filter_ids_intid ON catalog_filter_ids(catalog, intid)`,

		// Fingerprint of the last indexed entry of each id
		`CREATE TABLE IF NOT EXISTS catalog_indexed (
			catalog TEXT NOT NULL,
			intid INTEGER NOT NULL,
			fingerprint INTEGER NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (catalog, intid)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the store and releases resources
func (s *SQLiteCatalogStore) Close() error {
	return s.db.Close()
}

// Fingerprint returns the stored fingerprint of id, ok is false when id is not indexed.
func (s *SQLiteCatalogStore) Fingerprint(ctx context.Context, catalogName string, id catalog.IntID) (int64, bool, error) {
	var fp int64
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint FROM catalog_indexed WHERE catalog = ? AND intid = ?
	`, catalogName, int64(id)).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return fp, true, nil
}

// WriteEntry replaces every row stored for entry.ID in catalogName. Filter
// membership is only recorded for registered filters.
func (s *SQLiteCatalogStore) WriteEntry(ctx context.Context, catalogName string, entry *Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := int64(entry.ID)
	if err := deleteID(ctx, tx, catalogName, id); err != nil {
		return err
	}

	for indexName, values := range entry.Values {
		for _, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO catalog_entries (catalog, index_name, intid, value) VALUES (?, ?, ?, ?)
			`, catalogName, indexName, id, value); err != nil {
				return fmt.Errorf("failed to insert %s entry: %w", indexName, err)
			}
		}
	}

	for indexName, filters := range entry.Filters {
		for _, filter := range filters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO catalog_filter_ids (catalog, index_name, filter, intid)
				SELECT catalog, index_name, filter, ? FROM catalog_filters
				WHERE catalog = ? AND index_name = ? AND filter = ?
			`, id, catalogName, indexName, filter); err != nil {
				return fmt.Errorf("failed to insert %s/%s membership: %w", indexName, filter, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_indexed (catalog, intid, fingerprint) VALUES (?, ?, ?)
		ON CONFLICT(catalog, intid) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			updated_at = strftime('%s', 'now')
	`, catalogName, id, entry.Fingerprint()); err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}

	return tx.Commit()
}

// DeleteID removes every row stored for id in catalogName.
func (s *SQLiteCatalogStore) DeleteID(ctx context.Context, catalogName string, id catalog.IntID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteID(ctx, tx, catalogName, int64(id)); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteID(ctx context.Context, tx *sql.Tx, catalogName string, id int64) error {
	for _, table := range []string{"catalog_entries", "catalog_filter_ids", "catalog_indexed"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE catalog = ? AND intid = ?`, catalogName, id); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// EntryIDs returns the sorted ids held by a value or keyword index.
func (s *SQLiteCatalogStore) EntryIDs(ctx context.Context, catalogName, indexName string) ([]catalog.IntID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT intid FROM catalog_entries
		WHERE catalog = ? AND index_name = ?
		ORDER BY intid
	`, catalogName, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to list index ids: %w", err)
	}
	return scanIDs(rows)
}

// Values returns the sorted distinct values held by an index.
func (s *SQLiteCatalogStore) Values(ctx context.Context, catalogName, indexName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT value FROM catalog_entries
		WHERE catalog = ? AND index_name = ?
		ORDER BY value
	`, catalogName, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to list index values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return values, nil
}

// ValuesOf returns the values stored for id in an index.
func (s *SQLiteCatalogStore) ValuesOf(ctx context.Context, catalogName, indexName string, id catalog.IntID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM catalog_entries
		WHERE catalog = ? AND index_name = ? AND intid = ?
		ORDER BY value
	`, catalogName, indexName, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get index values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ClearIndex drops every entry of a value or keyword index. The catalog's
// fingerprints are dropped with it so the next IndexObject rewrites each id.
func (s *SQLiteCatalogStore) ClearIndex(ctx context.Context, catalogName, indexName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM catalog_entries WHERE catalog = ? AND index_name = ?
	`, catalogName, indexName); err != nil {
		return fmt.Errorf("failed to clear index %s: %w", indexName, err)
	}
	if err := clearFingerprints(ctx, tx, catalogName); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearTopic drops a topic index: its memberships, its filter registrations and
// the catalog's fingerprints.
func (s *SQLiteCatalogStore) ClearTopic(ctx context.Context, catalogName, indexName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"catalog_filter_ids", "catalog_filters"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE catalog = ? AND index_name = ?`, catalogName, indexName); err != nil {
			return fmt.Errorf("failed to clear topic %s: %w", indexName, err)
		}
	}
	if err := clearFingerprints(ctx, tx, catalogName); err != nil {
		return err
	}
	return tx.Commit()
}

func clearFingerprints(ctx context.Context, tx *sql.Tx, catalogName string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_indexed WHERE catalog = ?`, catalogName); err != nil {
		return fmt.Errorf("failed to clear fingerprints of %s: %w", catalogName, err)
	}
	return nil
}

// ClearCatalog drops everything stored for catalogName except filter registrations.
func (s *SQLiteCatalogStore) ClearCatalog(ctx context.Context, catalogName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"catalog_entries", "catalog_filter_ids", "catalog_indexed"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE catalog = ?`, catalogName); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// RegisterFilter registers a topic filter. Registering twice is a no-op.
func (s *SQLiteCatalogStore) RegisterFilter(ctx context.Context, catalogName, indexName, filter string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO catalog_filters (catalog, index_name, filter) VALUES (?, ?, ?)
	`, catalogName, indexName, filter); err != nil {
		return fmt.Errorf("failed to register filter %s: %w", filter, err)
	}
	return nil
}

// Filters returns the registered filters of a topic index.
func (s *SQLiteCatalogStore) Filters(ctx context.Context, catalogName, indexName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filter FROM catalog_filters
		WHERE catalog = ? AND index_name = ?
		ORDER BY filter
	`, catalogName, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var filters []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// FilterIDs returns the sorted ids belonging to a topic filter.
func (s *SQLiteCatalogStore) FilterIDs(ctx context.Context, catalogName, indexName, filter string) ([]catalog.IntID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intid FROM catalog_filter_ids
		WHERE catalog = ? AND index_name = ? AND filter = ?
		ORDER BY intid
	`, catalogName, indexName, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list filter ids: %w", err)
	}
	return scanIDs(rows)
}

// DuplicateValueIDs returns ids holding more than one value in an index.
func (s *SQLiteCatalogStore) DuplicateValueIDs(ctx context.Context, catalogName, indexName string) ([]catalog.IntID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intid FROM catalog_entries
		WHERE catalog = ? AND index_name = ?
		GROUP BY intid HAVING COUNT(*) > 1
		ORDER BY intid
	`, catalogName, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to check index structure: %w", err)
	}
	return scanIDs(rows)
}

// Stats returns the number of indexed ids per catalog.
func (s *SQLiteCatalogStore) Stats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	rows, err := s.db.QueryContext(ctx, `
		SELECT catalog, COUNT(*) as count FROM catalog_indexed GROUP BY catalog
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	return stats, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]catalog.IntID, error) {
	defer rows.Close()

	var ids []catalog.IntID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, catalog.IntID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return ids, nil
}
