package tracker

import (
	"time"

	"telegram-medication-report/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "03:04 PM"
)

// Location loads tz, falling back to UTC for unknown or empty names.
func Location(tz string) (*time.Location, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// WeekStart returns the Monday of the week containing t, in loc, as YYYY-MM-DD.
// Sunday belongs to the week that started six days earlier.
func WeekStart(t time.Time, loc *time.Location) string {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	monday := time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
	return monday.Format(dateLayout)
}

// DayOf returns the weekday name of t in loc.
func DayOf(t time.Time, loc *time.Location) models.Weekday {
	return models.Weekday(t.In(loc).Weekday().String())
}

// Stamp formats the local time of day stored for a check, e.g. "09:15 PM".
func Stamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(stampLayout)
}

// CheckRollover moves st to the week containing now and clears its days when
// the stored week is stale. It reports whether a rollover happened.
func CheckRollover(st *models.InstanceState, now time.Time, loc *time.Location) bool {
	current := WeekStart(now, loc)
	if st.CurrentWeekStart == current {
		return false
	}
	st.CurrentWeekStart = current
	st.Days = map[models.Weekday]*models.DayRecord{}
	return true
}
