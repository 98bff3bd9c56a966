package handlers

import (
	"context"
	"strings"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
)

// HandleMessage handles plain text: mood replies in private chats and prefix
// commands in report channels.
func (h *Handler) HandleMessage(ctx context.Context, log *logger.Logger, m chat.Message) {
	if m.FromBot || strings.TrimSpace(m.Text) == "" {
		return
	}

	if m.Private {
		h.handleMoodReply(ctx, log, m)
		return
	}

	fields := strings.Fields(m.Text)
	if !strings.EqualFold(fields[0], h.prefix) {
		return
	}
	h.handlePill(ctx, log.With("chat_id", m.ChatID, "user_id", m.UserID), m, fields[1:])
}

func (h *Handler) handleMoodReply(ctx context.Context, log *logger.Logger, m chat.Message) {
	pr, ok := h.prompts.Take(m.UserID)
	if !ok {
		return
	}
	log.Infow("logging mood", "instance", pr.Instance.Key, "day", pr.Day, "slot", pr.Slot, "user_id", m.UserID)
	h.svc.LogMood(ctx, pr.Instance, pr.Day, pr.Slot, m.Text)

	if _, err := h.client.SendText(ctx, m.ChatID, txtLogged+" "+encouragement()); err != nil {
		log.Warnw("failed to confirm mood", "err", err)
	}
}
