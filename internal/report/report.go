// Package report renders an instance's weekly state into chat payloads.
// Everything here is pure: same input, same output, no I/O.
package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
)

const (
	// Color is the accent used by every embed.
	Color = 16765404

	// BackupLimit is the longest backup summary sent before truncation.
	BackupLimit = 4000

	BackupGreeting = "Here is your weekly medication backup! 💊"
)

var slotEmoji = map[models.Slot]string{
	models.SlotAM: "🌞",
	models.SlotPM: "💤",
}

// Emoji returns the affordance emoji of a slot.
func Emoji(s models.Slot) string { return slotEmoji[s] }

// Render returns the status and mood embeds for the instance.
func Render(inst registry.Instance, st models.InstanceState) []chat.Embed {
	total := 0
	day := func(d models.Weekday) string {
		lines := []string{string(d)}
		for _, s := range inst.Slots {
			c := check(st, d, s)
			mark := ""
			if c.Done {
				total++
				mark = "✅"
				if c.At != "" {
					mark += " " + c.At
				}
			}
			lines = append(lines, strings.TrimRight(fmt.Sprintf("%s: %s", s, mark), " "))
		}
		return strings.Join(lines, "\n")
	}

	first := make([]string, 0, 4)
	for _, d := range models.Week[:4] {
		first = append(first, day(d))
	}
	second := make([]string, 0, 3)
	for _, d := range models.Week[4:] {
		second = append(second, day(d))
	}
	progress := fmt.Sprintf("Weekly Progress:\n%d/%d", total, 7*len(inst.Slots))

	status := chat.Embed{
		Title:       inst.Name + " 💊",
		Description: "Did you take your pills?",
		Color:       Color,
		Fields: []chat.Field{
			{Name: "Start of Week", Value: strings.Join(first, "\n\n"), Inline: true},
			{Name: "End of Week", Value: strings.Join(second, "\n\n") + "\n\n" + progress, Inline: true},
		},
	}

	mood := chat.Embed{Title: "How did you feel? ❤️", Color: Color}
	for _, d := range models.Week {
		lines := make([]string, 0, len(inst.Slots))
		for _, s := range inst.Slots {
			lines = append(lines, strings.TrimRight(fmt.Sprintf("%s: %s", s, moodOf(st, d, s)), " "))
		}
		mood.Fields = append(mood.Fields, chat.Field{Name: string(d), Value: strings.Join(lines, "\n")})
	}

	return []chat.Embed{status, mood}
}

// Checked counts the done checks of configured slots across the week.
func Checked(inst registry.Instance, st models.InstanceState) int {
	n := 0
	for _, d := range models.Week {
		for _, s := range inst.Slots {
			if check(st, d, s).Done {
				n++
			}
		}
	}
	return n
}

// Affordances returns one button per configured slot reflecting today's checks.
func Affordances(inst registry.Instance, st models.InstanceState, today models.Weekday) []chat.Affordance {
	out := make([]chat.Affordance, 0, len(inst.Slots))
	for _, s := range inst.Slots {
		out = append(out, chat.Affordance{
			Slot:    string(s),
			Emoji:   Emoji(s),
			Checked: check(st, today, s).Done,
		})
	}
	return out
}

// Display bundles the embeds and today's affordances.
func Display(inst registry.Instance, st models.InstanceState, today models.Weekday) chat.Display {
	return chat.Display{
		Embeds:      Render(inst, st),
		Affordances: Affordances(inst, st, today),
	}
}

// Backup renders the plain-text weekly summary sent to the operator before a reset.
func Backup(inst registry.Instance, st models.InstanceState) chat.Embed {
	var b strings.Builder
	for _, d := range models.Week {
		checks := make([]string, 0, len(inst.Slots))
		moods := make([]string, 0, len(inst.Slots))
		for _, s := range inst.Slots {
			mark := "❌"
			if check(st, d, s).Done {
				mark = "✅"
			}
			checks = append(checks, fmt.Sprintf("%s: %s", s, mark))
			m := moodOf(st, d, s)
			if m == "" {
				m = "-"
			}
			moods = append(moods, fmt.Sprintf("%s Mood: %s", s, m))
		}
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", d, strings.Join(checks, ", "), strings.Join(moods, "\n"))
	}

	week := st.CurrentWeekStart
	if week == "" {
		week = "Unknown"
	}
	return chat.Embed{
		Title:       "Weekly Backup: " + inst.Name,
		Description: fmt.Sprintf("Week starting: %s\n\n%s", week, truncate(strings.TrimRight(b.String(), "\n"), BackupLimit)),
		Color:       Color,
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}

func check(st models.InstanceState, d models.Weekday, s models.Slot) models.Check {
	rec, ok := st.Days[d]
	if !ok || rec == nil {
		return models.Check{}
	}
	return rec.Checks[s]
}

func moodOf(st models.InstanceState, d models.Weekday, s models.Slot) string {
	rec, ok := st.Days[d]
	if !ok || rec == nil {
		return ""
	}
	return rec.Mood[s]
}
