package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"telegram-medication-report/internal/models"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteStore(db, "nao"), mock
}

func TestSQLiteLoadNoRowsGivesEmptyDocument(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, body FROM documents")).
		WithArgs(documentRowID).
		WillReturnError(sql.ErrNoRows)

	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != 0 || len(doc.Instances) != 0 {
		t.Fatalf("unexpected doc %+v", doc)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteLoadUsesColumnVersion(t *testing.T) {
	store, mock := newMockStore(t)
	body := `{"version":1,"instances":{"nao":{"currentWeekStart":"2026-02-16","days":{"Monday":{"AM":"09:00 AM"}}}}}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, body FROM documents")).
		WithArgs(documentRowID).
		WillReturnRows(sqlmock.NewRows([]string{"version", "body"}).AddRow(int64(9), body))

	doc, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != 9 {
		t.Fatalf("version = %d, want 9", doc.Version)
	}
	if !doc.Instances["nao"].Days[models.Monday].Checks[models.SlotAM].Done {
		t.Fatal("Monday AM not decoded")
	}
}

func TestSQLiteSaveInsertsFirstVersion(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs(documentRowID, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := models.NewDocument()
	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("version = %d, want 1", doc.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSQLiteSaveConflictOnStaleVersion(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET version")).
		WithArgs(int64(4), sqlmock.AnyArg(), sqlmock.AnyArg(), documentRowID, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	doc := models.NewDocument()
	doc.Version = 3
	err := store.Save(context.Background(), doc)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Save err = %v, want ErrConflict", err)
	}
	if doc.Version != 3 {
		t.Fatalf("version changed on conflict: %d", doc.Version)
	}
}

func TestSQLiteSaveWrapsDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET version")).
		WillReturnError(errors.New("disk I/O error"))

	doc := models.NewDocument()
	doc.Version = 1
	err := store.Save(context.Background(), doc)
	if err == nil || errors.Is(err, ErrConflict) {
		t.Fatalf("Save err = %v, want wrapped driver error", err)
	}
}
