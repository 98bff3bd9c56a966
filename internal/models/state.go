package models

import "strings"

// Slot is a time-of-day checkpoint within a tracked day.
type Slot string

const (
	SlotAM Slot = "AM"
	SlotPM Slot = "PM"
)

// AllSlots lists every supported slot in display order.
var AllSlots = []Slot{SlotAM, SlotPM}

// ParseSlot accepts "am"/"AM"/"Am" etc.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(strings.ToUpper(strings.TrimSpace(s))) {
	case SlotAM:
		return SlotAM, true
	case SlotPM:
		return SlotPM, true
	}
	return "", false
}

// Weekday names as stored in the document ("Monday".."Sunday").
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Week is the fixed Monday-first display order.
var Week = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts full names and three-letter prefixes, case-insensitive.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return "", false
	}
	for _, d := range Week {
		name := strings.ToLower(string(d))
		if name == s || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, true
		}
	}
	return "", false
}
