package handlers

import (
	"fmt"
	"html"
	"strings"

	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
)

const (
	txtNotMapped       = "This command can only be used in medication report channels."
	txtNotAuthorized   = "⛔ You are not authorized to log for this medication report."
	txtLogUsage        = "Usage: <code>/log &lt;day&gt; [AM|PM]</code>, e.g. <code>/log Monday AM</code>"
	txtRefreshed       = "Medication report refreshed/restored."
	txtResetDone       = "Weekly data reset manually (Backups sent)."
	txtNoReminder      = "No reminder configured for this channel."
	txtReminderFailed  = "Failed to send the reminder."
	txtLogged          = "✅ Logged!"
	txtStartPrivate    = "Open a private chat with me to log your mood."
	txtStart           = "Hi! I keep the weekly medication report. Use <code>/log</code> or the buttons under the report in a report channel."
	txtPillHelpPattern = "Use <code>%[1]s refresh</code>, <code>%[1]s reset</code> or <code>%[1]s remind [AM|PM]</code>."
)

var encouragements = []string{
	"Proud of you! 💖",
	"Keep it up! ✨",
	"You're doing great! 🌸",
	"Sending you hugs! 🫂",
	"Good job taking care of yourself! 🌿",
	"You got this! 💫",
	"Stay awesome! 🍄",
	"Yay! All done! 🎉",
}

func pillHelp(prefix string) string {
	return fmt.Sprintf(txtPillHelpPattern, html.EscapeString(prefix))
}

func slotList(inst registry.Instance) string {
	out := make([]string, 0, len(inst.Slots))
	for _, s := range inst.Slots {
		out = append(out, string(s))
	}
	return strings.Join(out, ", ")
}

func txtSpecifySlot(inst registry.Instance) string {
	return "Please specify a time slot (AM or PM) for this channel. Available: " + slotList(inst)
}

func txtInvalidSlot(inst registry.Instance, slot string) string {
	return fmt.Sprintf("Invalid slot '%s' for this channel. Available: %s", html.EscapeString(slot), slotList(inst))
}

func txtLogConfirm(day models.Weekday, slot models.Slot, dm bool) string {
	if dm {
		return fmt.Sprintf("✅ Logged %s %s checkmark! Check your DMs to log your mood.", day, slot)
	}
	return fmt.Sprintf("✅ Logged %s %s checkmark! (Failed to send DM)", day, slot)
}

func txtPromptNow(inst registry.Instance, slot models.Slot) string {
	return fmt.Sprintf("<b>%s (%s)</b>\nHow are you feeling right now? (Reply here to log) 🎀", html.EscapeString(inst.Name), slot)
}

func txtPromptPast(inst registry.Instance, day models.Weekday, slot models.Slot) string {
	return fmt.Sprintf("<b>%s (%s %s)</b>\nHow were you feeling last %s? (Reply here to log) 🎀", html.EscapeString(inst.Name), day, slot, day)
}

func txtToast(slot models.Slot, added bool) string {
	if added {
		return fmt.Sprintf("✅ %s logged", slot)
	}
	return fmt.Sprintf("%s unchecked", slot)
}
