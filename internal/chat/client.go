// Package chat is the boundary between the tracker and the chat platform.
package chat

import "context"

// Field is one titled block inside an Embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich payload.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Affordance is one interactive button on a display message. Pressing an
// unchecked affordance reports a reaction-added event, pressing a checked one
// reports reaction-removed.
type Affordance struct {
	Slot    string
	Emoji   string
	Checked bool
}

// Display is everything pushed to a display message.
type Display struct {
	Embeds      []Embed
	Affordances []Affordance
}

// Client is what the tracker needs from the chat platform. Every method is
// fallible; failures are *Error values carrying a Kind.
type Client interface {
	SelfID() int64

	// SendDisplay posts a new display message and returns its id.
	SendDisplay(ctx context.Context, chatID int64, d Display) (int, error)
	// EditDisplay replaces the payload and affordances of an existing message.
	EditDisplay(ctx context.Context, chatID int64, msgID int, d Display) error
	// SetAffordances clears all affordances of a message and adds affs.
	SetAffordances(ctx context.Context, chatID int64, msgID int, affs []Affordance) error

	// SendText posts an HTML text message and returns its id.
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	// Reply answers a message in the same chat.
	Reply(ctx context.Context, chatID int64, replyTo int, text string) error
	Delete(ctx context.Context, chatID int64, msgID int) error

	// SendPrivate opens (or reuses) the private chat with userID and posts text and embeds.
	SendPrivate(ctx context.Context, userID int64, text string, embeds []Embed) error

	// Acknowledge closes an interactive action (button press) with an optional toast.
	Acknowledge(ctx context.Context, actionID, text string) error
}
