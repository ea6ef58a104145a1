// Package chatlog provides the append-only message log rendered by the chat widget.
//
// Entries are never removed or reordered. The only mutation allowed is
// resolving a placeholder entry, and a placeholder resolves exactly once.
package chatlog

import (
	"errors"
	"fmt"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

var (
	// ErrUnknownHandle is returned when a handle does not refer to an entry in the log.
	ErrUnknownHandle = errors.New("unknown message handle")

	// ErrImmutable is returned when resolving an entry that was not appended as a placeholder.
	ErrImmutable = errors.New("message is not a placeholder")

	// ErrAlreadyResolved is returned when a placeholder is resolved a second time.
	ErrAlreadyResolved = errors.New("placeholder already resolved")
)

// Message is a single entry in the log.
type Message struct {
	Sender Sender
	Text   string

	// Pending is true while a placeholder is waiting for its final text.
	Pending bool
}

// Handle is a stable reference to an entry in a Log.
type Handle int

type entry struct {
	msg         Message
	placeholder bool
}

// Log is the append-only sequence of messages. Insertion order is display order.
//
// A Log is owned by a single event loop and is not safe for concurrent use.
type Log struct {
	entries []entry
}

func New() *Log {
	return &Log{}
}

// Append adds an immutable message to the end of the log.
func (l *Log) Append(sender Sender, text string) Handle {
	l.entries = append(l.entries, entry{msg: Message{Sender: sender, Text: text}})
	return Handle(len(l.entries) - 1)
}

// AppendPlaceholder adds a message whose text may later be replaced once via Resolve.
func (l *Log) AppendPlaceholder(sender Sender, text string) Handle {
	l.entries = append(l.entries, entry{
		msg:         Message{Sender: sender, Text: text, Pending: true},
		placeholder: true,
	})
	return Handle(len(l.entries) - 1)
}

// Resolve replaces the text of a pending placeholder.
func (l *Log) Resolve(h Handle, text string) error {
	if !l.valid(h) {
		return fmt.Errorf("resolving handle %d: %w", h, ErrUnknownHandle)
	}

	e := &l.entries[h]
	if !e.placeholder {
		return fmt.Errorf("resolving handle %d: %w", h, ErrImmutable)
	}
	if !e.msg.Pending {
		return fmt.Errorf("resolving handle %d: %w", h, ErrAlreadyResolved)
	}

	e.msg.Text = text
	e.msg.Pending = false
	return nil
}

// At returns the message for a handle.
func (l *Log) At(h Handle) (Message, bool) {
	if !l.valid(h) {
		return Message{}, false
	}
	return l.entries[h].msg, true
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.entries)
}

// Pending returns the number of unresolved placeholders.
func (l *Log) Pending() int {
	n := 0
	for _, e := range l.entries {
		if e.msg.Pending {
			n++
		}
	}
	return n
}

// Messages returns a copy of all messages in display order.
func (l *Log) Messages() []Message {
	out := make([]Message, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.msg
	}
	return out
}

func (l *Log) valid(h Handle) bool {
	return h >= 0 && int(h) < len(l.entries)
}
