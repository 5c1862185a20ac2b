package notify

import (
	"context"
	"errors"
)

// Colors for the rendered embed, following the chat platform's palette.
const (
	ColorWin  = 0x2ECC71
	ColorLoss = 0xE74C3C
	ColorGold = 0xF1C40F
)

// ErrMessageGone means the previously sent message no longer exists (deleted
// on the platform side). Edits against it are abandoned silently.
var ErrMessageGone = errors.New("message gone")

type Message struct {
	Title  string
	Color  int
	Fields []Field
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Sink delivers rendered notifications. Send returns an opaque handle that
// Edit accepts to rewrite the message in place.
type Sink interface {
	Send(ctx context.Context, msg Message) (string, error)
	Edit(ctx context.Context, handle string, msg Message) error
}
