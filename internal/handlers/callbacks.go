package handlers

import (
	"context"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
)

// HandleReaction turns an affordance press on a display message into a check or
// uncheck of today's slot. Presses outside report channels, on foreign messages,
// by bots or for unconfigured slots are ignored.
func (h *Handler) HandleReaction(ctx context.Context, log *logger.Logger, r chat.Reaction) {
	toast := ""
	defer func() {
		if err := h.client.Acknowledge(ctx, r.ActionID, toast); err != nil {
			log.Debugw("failed to acknowledge press", "err", err)
		}
	}()

	if r.FromBot {
		return
	}
	inst, ok := h.svc.Registry.ByChannel(r.ChatID)
	if !ok {
		return
	}
	if r.AuthorID != h.client.SelfID() {
		return
	}
	slot, ok := models.ParseSlot(r.Slot)
	if !ok || !inst.HasSlot(slot) {
		return
	}

	day := h.svc.Tracker.Today(inst.Timezone)
	log = log.With("instance", inst.Key, "day", day, "slot", slot, "user", r.UserName)
	toast = txtToast(slot, r.Added)

	if !r.Added {
		log.Infow("unchecking slot")
		h.svc.Uncheck(ctx, inst, day, slot)
		return
	}

	log.Infow("checking slot")
	h.svc.Check(ctx, inst, day, slot, r.ChatID)

	err := h.prompts.Start(ctx, r.UserID, Prompt{Instance: inst, Day: day, Slot: slot}, txtPromptNow(inst, slot))
	if err != nil {
		log.Warnw("failed to send mood prompt", "err", err)
		if chat.IsForbidden(err) {
			toast += ". " + txtStartPrivate
		}
	}
}
