package widget

import (
	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/chatlog"
)

// Turn is one user submission awaiting its reply.
type Turn struct {
	ID          string
	Prompt      string
	Placeholder chatlog.Handle
}

// Messages returns the conversation sent for this turn. Turns carry no
// history: the array holds only the turn's own prompt.
func (t *Turn) Messages() []chatclient.Message {
	return []chatclient.Message{
		{Role: chatclient.RoleUser, Content: t.Prompt},
	}
}

// Outcome classifies how a turn settled.
type Outcome int

const (
	OutcomeReply Outcome = iota
	OutcomeEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReply:
		return "reply"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the settled state of a turn: the text its placeholder resolves
// to, and the transport error if there was one.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}
