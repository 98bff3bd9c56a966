package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Document is the whole persisted state: one InstanceState per instance key.
type Document struct {
	Version   int64                     `json:"version"`
	Instances map[string]*InstanceState `json:"instances"`
}

// NewDocument returns an empty, unsaved document.
func NewDocument() *Document {
	return &Document{Instances: map[string]*InstanceState{}}
}

// InstanceState is the persisted weekly state of one tracked person.
type InstanceState struct {
	CurrentWeekStart string                 `json:"currentWeekStart"`    // YYYY-MM-DD, Monday
	Days             map[Weekday]*DayRecord `json:"days"`                // Monday..Sunday
	DisplayMessages  map[int64]int          `json:"messageIds"`          // chat id -> message id
	ReminderMessages map[int64]int          `json:"reminders,omitempty"` // chat id -> latest reminder message id
}

// NewInstanceState creates an empty state for the given week.
func NewInstanceState(weekStart string) *InstanceState {
	s := &InstanceState{CurrentWeekStart: weekStart}
	s.Normalize()
	return s
}

// Normalize replaces nil maps so callers can write without checks.
func (s *InstanceState) Normalize() {
	if s.Days == nil {
		s.Days = map[Weekday]*DayRecord{}
	}
	if s.DisplayMessages == nil {
		s.DisplayMessages = map[int64]int{}
	}
	if s.ReminderMessages == nil {
		s.ReminderMessages = map[int64]int{}
	}
	for d, rec := range s.Days {
		if rec == nil {
			delete(s.Days, d)
			continue
		}
		rec.Normalize()
	}
}

// Day returns the record for d, creating a default one if missing.
func (s *InstanceState) Day(d Weekday) *DayRecord {
	s.Normalize()
	rec, ok := s.Days[d]
	if !ok {
		rec = NewDayRecord()
		s.Days[d] = rec
	}
	return rec
}

// Clone returns a deep copy.
func (s *InstanceState) Clone() InstanceState {
	out := InstanceState{
		CurrentWeekStart: s.CurrentWeekStart,
		Days:             make(map[Weekday]*DayRecord, len(s.Days)),
		DisplayMessages:  make(map[int64]int, len(s.DisplayMessages)),
		ReminderMessages: make(map[int64]int, len(s.ReminderMessages)),
	}
	for d, rec := range s.Days {
		if rec == nil {
			continue
		}
		c := rec.clone()
		out.Days[d] = &c
	}
	for k, v := range s.DisplayMessages {
		out.DisplayMessages[k] = v
	}
	for k, v := range s.ReminderMessages {
		out.ReminderMessages[k] = v
	}
	return out
}

// DisplayChannels returns the chat ids with a recorded display message, sorted.
func (s *InstanceState) DisplayChannels() []int64 {
	out := make([]int64, 0, len(s.DisplayMessages))
	for ch := range s.DisplayMessages {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check is a slot's done flag. Done checks carry the local time they were made at.
// On disk: false, true (legacy) or a time string such as "09:15 PM".
type Check struct {
	Done bool
	At   string
}

func (c Check) MarshalJSON() ([]byte, error) {
	if !c.Done {
		return []byte("false"), nil
	}
	if c.At == "" {
		return []byte("true"), nil
	}
	return json.Marshal(c.At)
}

func (c *Check) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = Check{}
	case bool:
		*c = Check{Done: x}
	case string:
		*c = Check{Done: x != "", At: x}
	default:
		return fmt.Errorf("check: unexpected value %s", string(b))
	}
	return nil
}

// DayRecord holds the per-slot check values and mood texts of one weekday.
type DayRecord struct {
	Checks map[Slot]Check
	Mood   map[Slot]string
}

// NewDayRecord returns the default record: every slot unchecked, every mood empty.
func NewDayRecord() *DayRecord {
	rec := &DayRecord{}
	rec.Normalize()
	return rec
}

func (r *DayRecord) Normalize() {
	if r.Checks == nil {
		r.Checks = map[Slot]Check{}
	}
	if r.Mood == nil {
		r.Mood = map[Slot]string{}
	}
	for _, s := range AllSlots {
		if _, ok := r.Checks[s]; !ok {
			r.Checks[s] = Check{}
		}
		if _, ok := r.Mood[s]; !ok {
			r.Mood[s] = ""
		}
	}
}

func (r *DayRecord) clone() DayRecord {
	out := DayRecord{
		Checks: make(map[Slot]Check, len(r.Checks)),
		Mood:   make(map[Slot]string, len(r.Mood)),
	}
	for k, v := range r.Checks {
		out.Checks[k] = v
	}
	for k, v := range r.Mood {
		out.Mood[k] = v
	}
	return out
}

// MarshalJSON flattens checks next to the mood map: {"AM": "09:15 AM", "PM": false, "mood": {...}}.
func (r DayRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Checks)+1)
	for s, c := range r.Checks {
		out[string(s)] = c
	}
	mood := make(map[string]string, len(r.Mood))
	for s, m := range r.Mood {
		mood[string(s)] = m
	}
	out["mood"] = mood
	return json.Marshal(out)
}

func (r *DayRecord) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Checks = map[Slot]Check{}
	r.Mood = map[Slot]string{}
	for k, v := range raw {
		if k == "mood" {
			var mood map[string]string
			if err := json.Unmarshal(v, &mood); err != nil {
				return fmt.Errorf("mood: %w", err)
			}
			for s, m := range mood {
				r.Mood[Slot(s)] = m
			}
			continue
		}
		var c Check
		if err := json.Unmarshal(v, &c); err != nil {
			return fmt.Errorf("slot %s: %w", k, err)
		}
		r.Checks[Slot(k)] = c
	}
	r.Normalize()
	return nil
}
