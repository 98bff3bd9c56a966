package storage

import (
	"testing"

	"telegram-medication-report/internal/models"
)

func TestUpgradeEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		doc, migrated, err := Upgrade([]byte(raw), "nao")
		if err != nil {
			t.Fatalf("Upgrade(%q): %v", raw, err)
		}
		if migrated || len(doc.Instances) != 0 {
			t.Fatalf("Upgrade(%q) = %+v migrated=%v", raw, doc, migrated)
		}
	}
}

func TestUpgradeMovesLegacyShapeUnderKey(t *testing.T) {
	raw := `{
		"currentWeekStart": "2026-02-16",
		"days": {"Monday": {"AM": "08:01 AM", "PM": false}},
		"messageIds": {"-1001": 55}
	}`
	doc, migrated, err := Upgrade([]byte(raw), "nao")
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if !migrated {
		t.Fatal("legacy document not reported as migrated")
	}
	st := doc.Instances["nao"]
	if st == nil {
		t.Fatal("legacy state not moved under nao")
	}
	if st.CurrentWeekStart != "2026-02-16" {
		t.Fatalf("week start = %q", st.CurrentWeekStart)
	}
	if !st.Days[models.Monday].Checks[models.SlotAM].Done {
		t.Fatal("Monday AM lost in migration")
	}
	if st.DisplayMessages[-1001] != 55 {
		t.Fatalf("display messages = %v", st.DisplayMessages)
	}
	if st.ReminderMessages == nil {
		t.Fatal("reminder map not normalised")
	}
}

func TestUpgradeCurrentShapeNormalises(t *testing.T) {
	raw := `{"version": 4, "instances": {"nao": {"currentWeekStart": "2026-02-16"}, "ghost": null}}`
	doc, migrated, err := Upgrade([]byte(raw), "nao")
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if migrated {
		t.Fatal("current document reported as migrated")
	}
	if doc.Version != 4 {
		t.Fatalf("version = %d", doc.Version)
	}
	if _, ok := doc.Instances["ghost"]; ok {
		t.Fatal("nil instance kept")
	}
	if doc.Instances["nao"].Days == nil || doc.Instances["nao"].DisplayMessages == nil {
		t.Fatal("maps not normalised")
	}
}

func TestUpgradeRejectsGarbage(t *testing.T) {
	if _, _, err := Upgrade([]byte("{not json"), "nao"); err == nil {
		t.Fatal("expected decode error")
	}
}
