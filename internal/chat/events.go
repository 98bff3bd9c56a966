package chat

// Message is an inbound text message.
type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	UserName  string
	FromBot   bool
	Private   bool
	Text      string
}

// Command is an inbound bot command such as "/log Monday AM".
type Command struct {
	Message
	Name string
	Args []string
}

// Reaction is a press on a display message affordance.
type Reaction struct {
	ChatID    int64
	MessageID int
	// AuthorID is the author of the message the affordance belongs to.
	AuthorID int64
	UserID   int64
	UserName string
	FromBot  bool
	Slot     string
	Added    bool
	// ActionID identifies the press so it can be acknowledged.
	ActionID string
}
