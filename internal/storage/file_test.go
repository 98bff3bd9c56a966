package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"telegram-medication-report/internal/models"
)

func TestFileStoreLoadMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "medication_data.json"), "nao")
	doc, err := fs.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != 0 || len(doc.Instances) != 0 {
		t.Fatalf("unexpected doc %+v", doc)
	}
}

func TestFileStoreSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "medication_data.json"), "nao")

	doc, _ := fs.Load(ctx)
	st := models.NewInstanceState("2026-02-16")
	st.Day(models.Tuesday).Mood[models.SlotPM] = "tired"
	doc.Instances["nao"] = st

	if err := fs.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("version after save = %d", doc.Version)
	}

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("loaded version = %d", got.Version)
	}
	if got.Instances["nao"].Days[models.Tuesday].Mood[models.SlotPM] != "tired" {
		t.Fatal("mood not persisted")
	}
}

func TestFileStoreRejectsStaleWrite(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "medication_data.json"), "nao")

	a, _ := fs.Load(ctx)
	b, _ := fs.Load(ctx)

	a.Instances["nao"] = models.NewInstanceState("2026-02-16")
	if err := fs.Save(ctx, a); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	b.Instances["nightly"] = models.NewInstanceState("2026-02-16")
	if err := fs.Save(ctx, b); !errors.Is(err, ErrConflict) {
		t.Fatalf("second Save err = %v, want ErrConflict", err)
	}
}

func TestFileStoreMigratesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medication_data.json")
	legacy := `{"currentWeekStart":"2026-02-09","days":{"Friday":{"PM":"09:40 PM"}},"messageIds":{"42":7}}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	doc, err := NewFileStore(path, "nao").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := doc.Instances["nao"]
	if st == nil || st.Days[models.Friday].Checks[models.SlotPM].At != "09:40 PM" {
		t.Fatalf("legacy data not migrated: %+v", doc.Instances)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medication_data.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path, "nao").Load(context.Background()); err == nil {
		t.Fatal("expected error for corrupt file")
	}
}
