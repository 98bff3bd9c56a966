package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeMessage is a message held by Fake.
type FakeMessage struct {
	ChatID  int64
	ID      int
	Text    string
	Display *Display
	ReplyTo int
}

// PrivateMessage is a direct message recorded by Fake.
type PrivateMessage struct {
	UserID int64
	Text   string
	Embeds []Embed
}

// Fake is an in-memory Client for tests. Messages not present in its store
// fail with KindNotFound, chats listed in Forbidden fail with KindForbidden.
type Fake struct {
	mu     sync.Mutex
	Self   int64
	nextID int

	messages  map[int64]map[int]*FakeMessage
	private   []PrivateMessage
	acks      map[string]string
	calls     map[string]int
	forbidden map[int64]bool
	failing   map[string]error
}

func NewFake(self int64) *Fake {
	return &Fake{
		Self:      self,
		nextID:    100,
		messages:  map[int64]map[int]*FakeMessage{},
		acks:      map[string]string{},
		calls:     map[string]int{},
		forbidden: map[int64]bool{},
		failing:   map[string]error{},
	}
}

func (f *Fake) SelfID() int64 { return f.Self }

// Forbid makes every operation targeting chatID fail with KindForbidden.
func (f *Fake) Forbid(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forbidden[chatID] = true
}

// FailOp makes op fail with err until cleared with a nil err.
func (f *Fake) FailOp(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, op)
		return
	}
	f.failing[op] = err
}

// Remove deletes a message as if a user did it out of band.
func (f *Fake) Remove(chatID int64, msgID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages[chatID], msgID)
}

// Message returns a copy of a stored message.
func (f *Fake) Message(chatID int64, msgID int) (FakeMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[chatID][msgID]
	if !ok {
		return FakeMessage{}, false
	}
	return *m, true
}

// Messages returns every stored message in chatID.
func (f *Fake) Messages(chatID int64) []FakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeMessage, 0, len(f.messages[chatID]))
	for _, m := range f.messages[chatID] {
		out = append(out, *m)
	}
	return out
}

func (f *Fake) Private() []PrivateMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PrivateMessage(nil), f.private...)
}

// Acked returns the toast text for an acknowledged action.
func (f *Fake) Acked(actionID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.acks[actionID]
	return t, ok
}

// Calls reports how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// begin records the call and returns the injected error for op, if any.
// Callers hold f.mu.
func (f *Fake) begin(op string, chatID int64) error {
	f.calls[op]++
	if err, ok := f.failing[op]; ok {
		return &Error{Op: op, Kind: KindOf(err), Err: err}
	}
	if f.forbidden[chatID] {
		return &Error{Op: op, Kind: KindForbidden, Err: errors.New("forbidden")}
	}
	return nil
}

func (f *Fake) store(chatID int64, m *FakeMessage) int {
	f.nextID++
	m.ChatID = chatID
	m.ID = f.nextID
	if f.messages[chatID] == nil {
		f.messages[chatID] = map[int]*FakeMessage{}
	}
	f.messages[chatID][m.ID] = m
	return m.ID
}

func (f *Fake) lookup(op string, chatID int64, msgID int) (*FakeMessage, error) {
	m, ok := f.messages[chatID][msgID]
	if !ok {
		return nil, &Error{Op: op, Kind: KindNotFound, Err: fmt.Errorf("message %d not found", msgID)}
	}
	return m, nil
}

func cloneDisplay(d Display) *Display {
	c := Display{
		Embeds:      append([]Embed(nil), d.Embeds...),
		Affordances: append([]Affordance(nil), d.Affordances...),
	}
	return &c
}

func (f *Fake) SendDisplay(_ context.Context, chatID int64, d Display) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("send_display", chatID); err != nil {
		return 0, err
	}
	return f.store(chatID, &FakeMessage{Display: cloneDisplay(d)}), nil
}

func (f *Fake) EditDisplay(_ context.Context, chatID int64, msgID int, d Display) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("edit_display", chatID); err != nil {
		return err
	}
	m, err := f.lookup("edit_display", chatID, msgID)
	if err != nil {
		return err
	}
	m.Display = cloneDisplay(d)
	return nil
}

func (f *Fake) SetAffordances(_ context.Context, chatID int64, msgID int, affs []Affordance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("set_affordances", chatID); err != nil {
		return err
	}
	m, err := f.lookup("set_affordances", chatID, msgID)
	if err != nil {
		return err
	}
	if m.Display == nil {
		m.Display = &Display{}
	}
	m.Display.Affordances = append([]Affordance(nil), affs...)
	return nil
}

func (f *Fake) SendText(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("send_text", chatID); err != nil {
		return 0, err
	}
	return f.store(chatID, &FakeMessage{Text: text}), nil
}

func (f *Fake) Reply(_ context.Context, chatID int64, replyTo int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("reply", chatID); err != nil {
		return err
	}
	f.store(chatID, &FakeMessage{Text: text, ReplyTo: replyTo})
	return nil
}

func (f *Fake) Delete(_ context.Context, chatID int64, msgID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("delete", chatID); err != nil {
		return err
	}
	if _, err := f.lookup("delete", chatID, msgID); err != nil {
		return err
	}
	delete(f.messages[chatID], msgID)
	return nil
}

func (f *Fake) SendPrivate(_ context.Context, userID int64, text string, embeds []Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("send_private", userID); err != nil {
		return err
	}
	f.private = append(f.private, PrivateMessage{UserID: userID, Text: text, Embeds: append([]Embed(nil), embeds...)})
	return nil
}

func (f *Fake) Acknowledge(_ context.Context, actionID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("acknowledge", 0); err != nil {
		return err
	}
	f.acks[actionID] = text
	return nil
}

var _ Client = (*Fake)(nil)
var _ Client = (*Telegram)(nil)
