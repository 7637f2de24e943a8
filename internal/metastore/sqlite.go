package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"

	"pidvault/internal/docs"
	"pidvault/internal/metastore/migrations"
)

const recordColumns = `id, name, size, mime_type, url, uploaded_at, project_id, COALESCE(category, ''), schema_version`

// SQLiteStore implements docs.Store on SQLite. Insertion order is the
// autoincrement seq column.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens the database at path (or ":memory:") and applies
// pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating metadata database: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens a SQLite connection configured for the metadata store.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]*docs.FileRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM file_records ORDER BY seq`)
}

func (s *SQLiteStore) ListByProject(ctx context.Context, projectID string) ([]*docs.FileRecord, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM file_records WHERE project_id = ? ORDER BY seq`, projectID)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*docs.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM file_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", id, err)
	}
	return rec, nil
}

// Append inserts the batch in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, records ...*docs.FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_records
		(id, name, size, mime_type, url, uploaded_at, project_id, category, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Size, r.MimeType, r.URL,
			r.UploadedAt, r.ProjectID, string(r.Category), r.SchemaVersion)
		if err != nil {
			var sqlErr sqlite3.Error
			if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return fmt.Errorf("record %s: %w", r.ID, docs.ErrDuplicateID)
			}
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (*docs.FileRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rec, err := scanRecord(tx.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM file_records WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, docs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_records WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting record %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return rec, nil
}

// Backup writes a consistent copy of the database to destPath.
func (s *SQLiteStore) Backup(ctx context.Context, destPath string) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*docs.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []*docs.FileRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*docs.FileRecord, error) {
	var (
		rec      docs.FileRecord
		category string
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Size, &rec.MimeType, &rec.URL,
		&rec.UploadedAt, &rec.ProjectID, &category, &rec.SchemaVersion)
	if err != nil {
		return nil, err
	}
	rec.Category = docs.Category(category)
	docs.MigrateRecord(&rec)
	return &rec, nil
}

var _ docs.Store = (*SQLiteStore)(nil)
