package models

import (
	"encoding/json"
	"testing"
)

func TestDayRecordDecodesOriginalShape(t *testing.T) {
	raw := `{"AM":"09:15 AM","PM":false,"mood":{"AM":"sleepy","PM":""}}`
	var rec DayRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c := rec.Checks[SlotAM]; !c.Done || c.At != "09:15 AM" {
		t.Fatalf("AM = %+v", c)
	}
	if rec.Checks[SlotPM].Done {
		t.Fatal("PM should be unchecked")
	}
	if rec.Mood[SlotAM] != "sleepy" {
		t.Fatalf("mood AM = %q", rec.Mood[SlotAM])
	}
}

func TestDayRecordWithoutMoodIsDefaulted(t *testing.T) {
	var rec DayRecord
	if err := json.Unmarshal([]byte(`{"AM":true}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !rec.Checks[SlotAM].Done || rec.Checks[SlotAM].At != "" {
		t.Fatalf("legacy true not decoded: %+v", rec.Checks[SlotAM])
	}
	if m, ok := rec.Mood[SlotPM]; !ok || m != "" {
		t.Fatalf("mood PM not defaulted: %q %v", m, ok)
	}
}

func TestDayRecordEncodesFlatShape(t *testing.T) {
	rec := NewDayRecord()
	rec.Checks[SlotPM] = Check{Done: true, At: "10:01 PM"}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("unmarshal generic: %v", err)
	}
	if generic["AM"] != false || generic["PM"] != "10:01 PM" {
		t.Fatalf("unexpected encoding: %s", b)
	}
	if _, ok := generic["mood"].(map[string]interface{}); !ok {
		t.Fatalf("mood missing: %s", b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewInstanceState("2026-02-16")
	s.Day(Monday).Mood[SlotAM] = "ok"
	s.DisplayMessages[-100] = 7

	c := s.Clone()
	c.Days[Monday].Mood[SlotAM] = "changed"
	c.DisplayMessages[-100] = 8

	if s.Days[Monday].Mood[SlotAM] != "ok" || s.DisplayMessages[-100] != 7 {
		t.Fatal("clone shares memory with original")
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{"monday": Monday, "Sun": Sunday, " FRIDAY ": Friday, "wed": Wednesday}
	for in, want := range cases {
		got, ok := ParseWeekday(in)
		if !ok || got != want {
			t.Errorf("ParseWeekday(%q) = %q %v, want %q", in, got, ok, want)
		}
	}
	for _, bad := range []string{"", "mo", "someday", "mond"} {
		if _, ok := ParseWeekday(bad); ok {
			t.Errorf("ParseWeekday(%q) accepted", bad)
		}
	}
}

func TestParseSlot(t *testing.T) {
	if s, ok := ParseSlot("pm"); !ok || s != SlotPM {
		t.Fatalf("ParseSlot(pm) = %q %v", s, ok)
	}
	if _, ok := ParseSlot("noon"); ok {
		t.Fatal("ParseSlot(noon) accepted")
	}
}
