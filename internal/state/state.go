// Package state persists local, per-user data that does not belong on the
// server: table column preferences and a journal of CSV imports. It uses an
// embedded SQLite database with WAL mode.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// SQLiteStore holds local preferences and the import journal.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	prefStmts    prefStatements
	journalStmts journalStatements
}

type prefStatements struct {
	get, set *sql.Stmt
}

type journalStatements struct {
	record, list *sql.Stmt
}

// ImportRecord is one journal entry for a CSV import attempt.
type ImportRecord struct {
	ID         int64
	Collection string
	File       string
	Rows       int
	Imported   int
	Rejected   bool
	Report     string
	CreatedAt  time.Time
}

// NewStore opens the database at dbPath, applies migrations, and prepares
// the repeated statements. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	logger.Debug("opening state database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.desc, err)
		}
	}

	return nil
}

func (s *SQLiteStore) prepareStatements(ctx context.Context) error {
	var err error

	if s.prefStmts.get, err = s.db.PrepareContext(ctx,
		`SELECT columns FROM column_prefs WHERE collection = ?`); err != nil {
		return err
	}

	if s.prefStmts.set, err = s.db.PrepareContext(ctx,
		`INSERT INTO column_prefs (collection, columns, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(collection) DO UPDATE SET columns = excluded.columns, updated_at = excluded.updated_at`); err != nil {
		return err
	}

	if s.journalStmts.record, err = s.db.PrepareContext(ctx,
		`INSERT INTO import_journal (collection, file, rows, imported, rejected, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}

	if s.journalStmts.list, err = s.db.PrepareContext(ctx,
		`SELECT id, collection, file, rows, imported, rejected, report, created_at
		 FROM import_journal ORDER BY id DESC LIMIT ?`); err != nil {
		return err
	}

	return nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.prefStmts.get, s.prefStmts.set,
		s.journalStmts.record, s.journalStmts.list,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// GetColumns returns the saved column order for a collection, or nil when
// none has been saved.
func (s *SQLiteStore) GetColumns(ctx context.Context, collection string) ([]string, error) {
	var raw string

	err := s.prefStmts.get.QueryRowContext(ctx, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("state: reading column prefs for %s: %w", collection, err)
	}

	var cols []string
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return nil, fmt.Errorf("state: decoding column prefs for %s: %w", collection, err)
	}

	return cols, nil
}

// SetColumns saves the column order for a collection, replacing any
// previous preference.
func (s *SQLiteStore) SetColumns(ctx context.Context, collection string, cols []string) error {
	raw, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("state: encoding column prefs: %w", err)
	}

	if _, err := s.prefStmts.set.ExecContext(ctx, collection, string(raw), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("state: saving column prefs for %s: %w", collection, err)
	}

	return nil
}

// RecordImport appends an entry to the import journal.
func (s *SQLiteStore) RecordImport(ctx context.Context, rec ImportRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.journalStmts.record.ExecContext(ctx,
		rec.Collection, rec.File, rec.Rows, rec.Imported, rec.Rejected, rec.Report,
		createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("state: recording import: %w", err)
	}

	return nil
}

// ListImports returns the most recent journal entries, newest first.
func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	rows, err := s.journalStmts.list.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("state: listing imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRecord

	for rows.Next() {
		var (
			rec ImportRecord
			ts  string
		)

		if err := rows.Scan(&rec.ID, &rec.Collection, &rec.File, &rec.Rows,
			&rec.Imported, &rec.Rejected, &rec.Report, &ts); err != nil {
			return nil, fmt.Errorf("state: scanning import row: %w", err)
		}

		rec.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterating imports: %w", err)
	}

	return out, nil
}
