package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"telegram-medication-report/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

const (
	documentRowID = 1

	selectDocumentSQL = `SELECT version, body FROM documents WHERE id = ?`

	insertDocumentSQL = `
		INSERT INTO documents (id, version, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	updateDocumentSQL = `
		UPDATE documents SET version = ?, body = ?, updated_at = ?
		WHERE id = ? AND version = ?`
)

// SQLiteStore keeps the document in a single row with a version column.
type SQLiteStore struct {
	db        *sql.DB
	legacyKey string
}

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(path, legacyKey string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteStore(db, legacyKey), nil
}

func NewSQLiteStore(db *sql.DB, legacyKey string) *SQLiteStore {
	return &SQLiteStore{db: db, legacyKey: legacyKey}
}

func migrate(db *sql.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := db.Exec(string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Load(ctx context.Context) (*models.Document, error) {
	var (
		version int64
		body    string
	)
	err := s.db.QueryRowContext(ctx, selectDocumentSQL, documentRowID).Scan(&version, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc, _, err := Upgrade([]byte(body), s.legacyKey)
	if err != nil {
		return nil, err
	}
	doc.Version = version
	return doc, nil
}

func (s *SQLiteStore) Save(ctx context.Context, doc *models.Document) error {
	next := *doc
	next.Version = doc.Version + 1
	body, err := encode(&next)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	var res sql.Result
	if doc.Version == 0 {
		res, err = s.db.ExecContext(ctx, insertDocumentSQL, documentRowID, next.Version, string(body), now)
	} else {
		res, err = s.db.ExecContext(ctx, updateDocumentSQL, next.Version, string(body), now, documentRowID, doc.Version)
	}
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	doc.Version = next.Version
	return nil
}
