package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/medication"
)

// DefaultPrefix starts text commands such as "!pill refresh".
const DefaultPrefix = "!pill"

type Handler struct {
	svc     *medication.Service
	client  chat.Client
	prompts *Prompts
	prefix  string
	log     *logger.Logger
}

func New(svc *medication.Service, client chat.Client, prompts *Prompts, prefix string, log *logger.Logger) *Handler {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &Handler{svc: svc, client: client, prompts: prompts, prefix: prefix, log: log}
}

// Listen dispatches updates until ctx is cancelled or the channel closes.
func (h *Handler) Listen(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate routes one Telegram update to the matching handler.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	log := h.log.With("event_id", uuid.NewString(), "update_id", upd.UpdateID)

	switch {
	case upd.CallbackQuery != nil:
		r, ok := chat.ReactionFromTelegram(upd.CallbackQuery)
		if !ok {
			_ = h.client.Acknowledge(ctx, upd.CallbackQuery.ID, "")
			return
		}
		h.HandleReaction(ctx, log, r)

	case upd.Message != nil:
		if upd.Message.IsCommand() {
			h.HandleCommand(ctx, log, chat.CommandFromTelegram(upd.Message))
			return
		}
		h.HandleMessage(ctx, log, chat.MessageFromTelegram(upd.Message))
	}
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, m chat.Message, text string) {
	if err := h.client.Reply(ctx, m.ChatID, m.MessageID, text); err != nil {
		log.Warnw("failed to reply", "chat_id", m.ChatID, "err", err)
	}
}
