// Package widget implements the chat widget: it turns input submissions into
// chat turns, keeps the visible message log, and reconciles each turn's
// placeholder with the backend's reply.
//
// A turn has three phases. Submit and Settle mutate the log and must run on
// the owning event loop. Exchange is the suspend point: it performs the HTTP
// request, never touches the log, and may run on any goroutine.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/chatlog"
	"github.com/papercomputeco/chatwidget/pkg/logger"
	"github.com/papercomputeco/chatwidget/pkg/utils"
)

const (
	PlaceholderText = "Thinking..."
	NoResponseText  = "Sorry, no response received."
	FailureText     = "Failed to get response from server."
)

// Input is the text field submissions are read from.
type Input interface {
	Value() string
	Reset()
}

// Display is the scrollable surface the log is rendered into.
type Display interface {
	ScrollToBottom()
}

// Config holds the collaborators injected into a Widget.
type Config struct {
	// Input is required.
	Input Input

	// Client is required.
	Client chatclient.Chatter

	// Log defaults to an empty log.
	Log *chatlog.Log

	// Display defaults to a display that does nothing.
	Display Display

	// Logger defaults to logger.Nop().
	Logger *slog.Logger

	// Serial queues turns so that at most one request is in flight. By
	// default every submission is dispatched immediately and turns may
	// settle in any order.
	Serial bool
}

// Widget is the chat widget. It is owned by a single event loop.
type Widget struct {
	input   Input
	client  chatclient.Chatter
	log     *chatlog.Log
	display Display
	logger  *slog.Logger
	serial  bool

	inflight int
	queue    []*Turn
}

// New creates a Widget from its collaborators.
func New(cfg Config) (*Widget, error) {
	if cfg.Input == nil {
		return nil, errors.New("widget input is required")
	}
	if cfg.Client == nil {
		return nil, errors.New("widget chat client is required")
	}

	w := &Widget{
		input:   cfg.Input,
		client:  cfg.Client,
		log:     cfg.Log,
		display: cfg.Display,
		logger:  cfg.Logger,
		serial:  cfg.Serial,
	}
	if w.log == nil {
		w.log = chatlog.New()
	}
	if w.display == nil {
		w.display = nopDisplay{}
	}
	if w.logger == nil {
		w.logger = logger.Nop()
	}

	return w, nil
}

// Log returns the widget's message log.
func (w *Widget) Log() *chatlog.Log {
	return w.log
}

// InFlight returns the number of dispatched turns that have not settled.
func (w *Widget) InFlight() int {
	return w.inflight
}

// Queued returns the number of submitted turns waiting for dispatch.
func (w *Widget) Queued() int {
	return len(w.queue)
}

// AppendMessage appends a message to the log and scrolls the display so it is visible.
func (w *Widget) AppendMessage(sender chatlog.Sender, text string) chatlog.Handle {
	h := w.log.Append(sender, text)
	w.display.ScrollToBottom()
	return h
}

func (w *Widget) appendPlaceholder() chatlog.Handle {
	h := w.log.AppendPlaceholder(chatlog.SenderBot, PlaceholderText)
	w.display.ScrollToBottom()
	return h
}

// Submit reads the input field and starts a turn. Whitespace-only input is
// ignored and leaves the field untouched.
//
// The user message and the bot placeholder are both appended before Submit
// returns. The returned turns are ready for Exchange; in serial mode a new
// turn is held back while another is in flight.
func (w *Widget) Submit() []*Turn {
	prompt := trimInput(w.input.Value())
	if prompt == "" {
		return nil
	}

	w.AppendMessage(chatlog.SenderUser, prompt)
	w.input.Reset()

	t := &Turn{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Placeholder: w.appendPlaceholder(),
	}

	w.logger.Debug("turn submitted",
		"turn", t.ID,
		"prompt", utils.Truncate(prompt, 40),
		"placeholder", int(t.Placeholder),
		"in_flight", w.inflight,
	)

	if w.serial && w.inflight > 0 {
		w.queue = append(w.queue, t)
		return nil
	}

	w.inflight++
	return []*Turn{t}
}

// Exchange sends the turn's prompt to the backend and classifies the reply.
// It does not touch the log.
func (w *Widget) Exchange(ctx context.Context, t *Turn) Result {
	reply, err := w.client.Chat(ctx, t.Messages())
	switch {
	case err != nil:
		return Result{Outcome: OutcomeFailed, Text: FailureText, Err: err}
	case reply == "":
		return Result{Outcome: OutcomeEmpty, Text: NoResponseText}
	default:
		return Result{Outcome: OutcomeReply, Text: reply}
	}
}

// Settle resolves the turn's placeholder with the result and scrolls the
// display to the bottom. It returns any queued turn that may now be dispatched.
func (w *Widget) Settle(t *Turn, r Result) []*Turn {
	if r.Err != nil {
		w.logger.Error("failed to fetch chat response",
			"turn", t.ID,
			"error", r.Err,
		)
	}

	if err := w.log.Resolve(t.Placeholder, r.Text); err != nil {
		w.logger.Warn("could not resolve placeholder",
			"turn", t.ID,
			"error", err,
		)
	} else {
		w.logger.Debug("turn settled",
			"turn", t.ID,
			"outcome", r.Outcome.String(),
		)
	}
	w.display.ScrollToBottom()

	if w.inflight > 0 {
		w.inflight--
	}

	if len(w.queue) == 0 {
		return nil
	}

	next := w.queue[0]
	w.queue = w.queue[1:]
	w.inflight++
	return []*Turn{next}
}

// Drive runs turns to completion on the calling goroutine, including any
// turns released from the serial queue along the way.
func (w *Widget) Drive(ctx context.Context, turns []*Turn) {
	for len(turns) > 0 {
		t := turns[0]
		turns = append(turns[1:], w.Settle(t, w.Exchange(ctx, t))...)
	}
}

// trimInput strips surrounding whitespace, counting the byte order mark as
// whitespace the way browser form input does.
func trimInput(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
}

type nopDisplay struct{}

func (nopDisplay) ScrollToBottom() {}
