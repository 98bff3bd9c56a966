package chat

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// maxMessageLen is Telegram's limit for a text message.
const maxMessageLen = 4096

// Bot API allows about 30 requests per second per bot.
const (
	sendRate  = 25
	sendBurst = 5
)

const (
	reactionPrefix = "rx:"
	reactionAdd    = "+"
	reactionRemove = "-"
)

// botAPI is the part of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Telegram implements Client on top of the Bot API.
type Telegram struct {
	bot     botAPI
	selfID  int64
	limiter *rate.Limiter
}

func NewTelegram(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{bot: bot, selfID: bot.Self.ID, limiter: rate.NewLimiter(sendRate, sendBurst)}
}

func (t *Telegram) wait(ctx context.Context, op string) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Kind: KindOther, Err: err}
	}
	return nil
}

func (t *Telegram) SelfID() int64 { return t.selfID }

func (t *Telegram) SendDisplay(ctx context.Context, chatID int64, d Display) (int, error) {
	if err := t.wait(ctx, "send display"); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, FormatHTML(d.Embeds))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = true
	msg.ReplyMarkup = keyboard(d.Affordances)
	m, err := t.bot.Send(msg)
	if err != nil {
		return 0, classify("send display", err)
	}
	return m.MessageID, nil
}

func (t *Telegram) EditDisplay(ctx context.Context, chatID int64, msgID int, d Display) error {
	if err := t.wait(ctx, "edit display"); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, FormatHTML(d.Embeds), keyboard(d.Affordances))
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Request(edit)
	if notModified(err) {
		return nil
	}
	return classify("edit display", err)
}

func (t *Telegram) SetAffordances(ctx context.Context, chatID int64, msgID int, affs []Affordance) error {
	if err := t.wait(ctx, "set affordances"); err != nil {
		return err
	}
	_, err := t.bot.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, keyboard(affs)))
	if notModified(err) {
		return nil
	}
	return classify("set affordances", err)
}

func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := t.wait(ctx, "send text"); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	m, err := t.bot.Send(msg)
	if err != nil {
		return 0, classify("send text", err)
	}
	return m.MessageID, nil
}

func (t *Telegram) Reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	if err := t.wait(ctx, "reply"); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	_, err := t.bot.Send(msg)
	return classify("reply", err)
}

func (t *Telegram) Delete(ctx context.Context, chatID int64, msgID int) error {
	if err := t.wait(ctx, "delete"); err != nil {
		return err
	}
	_, err := t.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID))
	return classify("delete", err)
}

// SendPrivate posts to the user's private chat; in Telegram its id equals the user id.
func (t *Telegram) SendPrivate(ctx context.Context, userID int64, text string, embeds []Embed) error {
	if err := t.wait(ctx, "send private"); err != nil {
		return err
	}
	body := text
	if len(embeds) > 0 {
		body = strings.TrimSpace(text + "\n\n" + FormatHTML(embeds))
	}
	msg := tgbotapi.NewMessage(userID, body)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.bot.Send(msg)
	return classify("send private", err)
}

func (t *Telegram) Acknowledge(ctx context.Context, actionID, text string) error {
	if err := t.wait(ctx, "acknowledge"); err != nil {
		return err
	}
	_, err := t.bot.Request(tgbotapi.NewCallback(actionID, text))
	return classify("acknowledge", err)
}

// FormatHTML renders embeds as Telegram HTML. Every dynamic string is escaped.
func FormatHTML(embeds []Embed) string {
	var b strings.Builder
	for i, e := range embeds {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.Title != "" {
			fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(e.Title))
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(e.Description))
		}
		for _, f := range e.Fields {
			b.WriteString("\n")
			if f.Name != "" {
				fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(f.Name))
			}
			b.WriteString(html.EscapeString(f.Value))
			b.WriteString("\n")
		}
	}
	out := strings.TrimRight(b.String(), "\n")
	if len(out) > maxMessageLen {
		out = truncateHTML(out, maxMessageLen)
	}
	return out
}

// truncateHTML cuts escaped HTML to at most n bytes without splitting a rune,
// an entity or a tag, and closes any <b> or <i> left open.
func truncateHTML(s string, n int) string {
	const (
		ellipsis = "..."
		closers  = "</b></i>"
	)
	if len(s) <= n {
		return s
	}
	cut := n - len(ellipsis) - len(closers)
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	out := s[:cut]
	if i := strings.LastIndexByte(out, '<'); i > strings.LastIndexByte(out, '>') {
		out = out[:i]
	}
	if i := strings.LastIndexByte(out, '&'); i > strings.LastIndexByte(out, ';') {
		out = out[:i]
	}
	out += ellipsis
	for _, tag := range []string{"b", "i"} {
		if strings.LastIndex(out, "<"+tag+">") > strings.LastIndex(out, "</"+tag+">") {
			out += "</" + tag + ">"
		}
	}
	return out
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }

func keyboard(affs []Affordance) tgbotapi.InlineKeyboardMarkup {
	if len(affs) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(affs))
	for _, a := range affs {
		label := a.Emoji + " " + a.Slot
		action := reactionAdd
		if a.Checked {
			label += " ✅"
			action = reactionRemove
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, reactionPrefix+action+":"+a.Slot))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func telegramError(err error) (*tgbotapi.Error, bool) {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

func notModified(err error) bool {
	tgErr, ok := telegramError(err)
	return ok && strings.Contains(strings.ToLower(tgErr.Message), "message is not modified")
}

var notFoundMarkers = []string{
	"not found",
	"message_id_invalid",
	"message can't be edited",
	"message can't be deleted",
	"upgraded to a supergroup",
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOther
	if tgErr, ok := telegramError(err); ok {
		desc := strings.ToLower(tgErr.Message)
		switch {
		case tgErr.Code == 403:
			kind = KindForbidden
		case tgErr.Code == 400 && containsAny(desc, notFoundMarkers):
			kind = KindNotFound
		case tgErr.Code == 400 && strings.Contains(desc, "not enough rights"):
			kind = KindForbidden
		}
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MessageFromTelegram converts an inbound Telegram message.
func MessageFromTelegram(m *tgbotapi.Message) Message {
	out := Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Private:   m.Chat.IsPrivate(),
		Text:      m.Text,
	}
	if m.From != nil {
		out.UserID = m.From.ID
		out.UserName = m.From.UserName
		if out.UserName == "" {
			out.UserName = m.From.FirstName
		}
		out.FromBot = m.From.IsBot
	}
	return out
}

// CommandFromTelegram converts a Telegram bot command ("/log Monday AM").
func CommandFromTelegram(m *tgbotapi.Message) Command {
	return Command{
		Message: MessageFromTelegram(m),
		Name:    strings.ToLower(m.Command()),
		Args:    strings.Fields(m.CommandArguments()),
	}
}

// ReactionFromTelegram converts an affordance press. ok is false for foreign callback data.
func ReactionFromTelegram(cq *tgbotapi.CallbackQuery) (r Reaction, ok bool) {
	if cq.Message == nil || !strings.HasPrefix(cq.Data, reactionPrefix) {
		return Reaction{}, false
	}
	parts := strings.SplitN(strings.TrimPrefix(cq.Data, reactionPrefix), ":", 2)
	if len(parts) != 2 || (parts[0] != reactionAdd && parts[0] != reactionRemove) {
		return Reaction{}, false
	}
	r = Reaction{
		ChatID:    cq.Message.Chat.ID,
		MessageID: cq.Message.MessageID,
		Slot:      parts[1],
		Added:     parts[0] == reactionAdd,
		ActionID:  cq.ID,
	}
	if cq.Message.From != nil {
		r.AuthorID = cq.Message.From.ID
	}
	if cq.From != nil {
		r.UserID = cq.From.ID
		r.UserName = cq.From.UserName
		if r.UserName == "" {
			r.UserName = cq.From.FirstName
		}
		r.FromBot = cq.From.IsBot
	}
	return r, true
}
