package handlers

import (
	"context"
	"errors"
	"strings"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/medication"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/reminder"
)

// HandleCommand handles bot commands: /log, /pill, /remind and /start.
func (h *Handler) HandleCommand(ctx context.Context, log *logger.Logger, cmd chat.Command) {
	if cmd.FromBot {
		return
	}
	log = log.With("command", cmd.Name, "chat_id", cmd.ChatID, "user_id", cmd.UserID)

	switch cmd.Name {
	case "log":
		h.handleLog(ctx, log, cmd)
	case "pill":
		h.handlePill(ctx, log, cmd.Message, cmd.Args)
	case "remind":
		h.handlePill(ctx, log, cmd.Message, append([]string{"remind"}, cmd.Args...))
	case "start", "help":
		h.reply(ctx, log, cmd.Message, txtStart)
	}
}

// handleLog checks a given day for the operator and asks for the mood of that day.
func (h *Handler) handleLog(ctx context.Context, log *logger.Logger, cmd chat.Command) {
	inst, ok := h.svc.Registry.ByChannel(cmd.ChatID)
	if !ok {
		h.reply(ctx, log, cmd.Message, txtNotMapped)
		return
	}
	if cmd.UserID != inst.OperatorID {
		log.Infow("unauthorized log attempt", "instance", inst.Key)
		h.reply(ctx, log, cmd.Message, txtNotAuthorized)
		return
	}
	if len(cmd.Args) == 0 {
		h.reply(ctx, log, cmd.Message, txtLogUsage)
		return
	}
	day, ok := models.ParseWeekday(cmd.Args[0])
	if !ok {
		h.reply(ctx, log, cmd.Message, txtLogUsage)
		return
	}

	var slot models.Slot
	if len(cmd.Args) < 2 {
		if len(inst.Slots) != 1 {
			h.reply(ctx, log, cmd.Message, txtSpecifySlot(inst))
			return
		}
		slot = inst.Slots[0]
	} else {
		parsed, ok := models.ParseSlot(cmd.Args[1])
		if !ok || !inst.HasSlot(parsed) {
			h.reply(ctx, log, cmd.Message, txtInvalidSlot(inst, cmd.Args[1]))
			return
		}
		slot = parsed
	}

	log.Infow("logging checkmark", "instance", inst.Key, "day", day, "slot", slot)
	h.svc.Check(ctx, inst, day, slot, cmd.ChatID)

	err := h.prompts.Start(ctx, cmd.UserID, Prompt{Instance: inst, Day: day, Slot: slot}, txtPromptPast(inst, day, slot))
	if err != nil {
		log.Warnw("failed to send mood prompt", "err", err)
	}
	h.reply(ctx, log, cmd.Message, txtLogConfirm(day, slot, err == nil))
}

// handlePill runs the prefix sub-actions: refresh/check, reset and remind.
func (h *Handler) handlePill(ctx context.Context, log *logger.Logger, m chat.Message, args []string) {
	inst, ok := h.svc.Registry.ByChannel(m.ChatID)
	if !ok {
		h.reply(ctx, log, m, txtNotMapped)
		return
	}
	log = log.With("instance", inst.Key)

	sub := ""
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}

	switch sub {
	case "refresh", "check":
		h.svc.Refresh(ctx, inst)
		h.reply(ctx, log, m, txtRefreshed)

	case "reset":
		log.Infow("manual reset requested", "user_id", m.UserID)
		h.svc.ResetInstance(ctx, inst, medication.ReasonForced)
		h.reply(ctx, log, m, txtResetDone)

	case "remind":
		var (
			slot models.Slot
			ok   bool
		)
		if len(args) > 1 {
			slot, ok = models.ParseSlot(args[1])
			if !ok || !inst.HasSlot(slot) {
				h.reply(ctx, log, m, txtInvalidSlot(inst, args[1]))
				return
			}
		} else if slot, ok = h.svc.DefaultReminderSlot(ctx, inst); !ok {
			h.reply(ctx, log, m, txtNoReminder)
			return
		}

		err := h.svc.Remind(ctx, inst, slot, m.ChatID)
		switch {
		case errors.Is(err, reminder.ErrNotConfigured):
			h.reply(ctx, log, m, txtNoReminder)
		case err != nil:
			log.Errorw("failed to send manual reminder", "slot", slot, "err", err)
			h.reply(ctx, log, m, txtReminderFailed)
		default:
			log.Infow("manually triggered reminder", "slot", slot)
			// Keep the channel clean: the reminder replaces the command message.
			if err := h.client.Delete(ctx, m.ChatID, m.MessageID); err != nil {
				log.Debugw("could not delete command message", "err", err)
			}
		}

	default:
		h.reply(ctx, log, m, pillHelp(h.prefix))
	}
}
