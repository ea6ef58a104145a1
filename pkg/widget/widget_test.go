package widget_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatwidget/pkg/chatclient"
	"github.com/papercomputeco/chatwidget/pkg/chatlog"
	"github.com/papercomputeco/chatwidget/pkg/logger"
	"github.com/papercomputeco/chatwidget/pkg/widget"
)

var _ = Describe("Widget", func() {
	var (
		ctx     context.Context
		input   *fakeInput
		display *fakeDisplay
		chatter *fakeChatter
		log     *chatlog.Log
		logBuf  *bytes.Buffer
		w       *widget.Widget
	)

	newWidget := func(serial bool) *widget.Widget {
		wd, err := widget.New(widget.Config{
			Input:   input,
			Client:  chatter,
			Log:     log,
			Display: display,
			Logger:  logger.New(logger.WithWriter(logBuf), logger.WithJSON(true)),
			Serial:  serial,
		})
		Expect(err).NotTo(HaveOccurred())
		return wd
	}

	BeforeEach(func() {
		ctx = context.Background()
		input = &fakeInput{}
		log = chatlog.New()
		display = &fakeDisplay{log: log}
		chatter = newFakeChatter()
		logBuf = &bytes.Buffer{}
		w = newWidget(false)
	})

	Describe("New", func() {
		It("requires an input", func() {
			_, err := widget.New(widget.Config{Client: chatter})
			Expect(err).To(HaveOccurred())
		})

		It("requires a client", func() {
			_, err := widget.New(widget.Config{Input: input})
			Expect(err).To(HaveOccurred())
		})

		It("defaults the log and display", func() {
			wd, err := widget.New(widget.Config{Input: input, Client: chatter})
			Expect(err).NotTo(HaveOccurred())
			Expect(wd.Log()).NotTo(BeNil())
			Expect(func() { wd.AppendMessage(chatlog.SenderBot, "hi") }).NotTo(Panic())
		})
	})

	Describe("AppendMessage", func() {
		It("appends and scrolls to the newest entry", func() {
			h := w.AppendMessage(chatlog.SenderUser, "")
			Expect(h).To(Equal(chatlog.Handle(0)))
			Expect(display.scrolls).To(Equal([]int{1}))

			msg, ok := log.At(h)
			Expect(ok).To(BeTrue())
			Expect(msg.Sender).To(Equal(chatlog.SenderUser))
			Expect(msg.Text).To(BeEmpty())
		})
	})

	Describe("Submit", func() {
		DescribeTable("ignores blank input",
			func(raw string) {
				input.value = raw
				Expect(w.Submit()).To(BeNil())
				Expect(log.Len()).To(Equal(0))
				Expect(input.value).To(Equal(raw))
				Expect(input.resets).To(Equal(0))
				Expect(chatter.callCount()).To(Equal(0))
				Expect(display.scrolls).To(BeEmpty())
			},
			Entry("empty", ""),
			Entry("spaces", "   "),
			Entry("tabs and newlines", "\t\n  \r\n"),
			Entry("byte order mark and spaces", "\ufeff  "),
			Entry("non-breaking spaces", "\u00a0\u2003"),
		)

		It("trims a byte order mark around the prompt", func() {
			input.value = "\ufeff hi \ufeff"
			Expect(w.Submit()).To(HaveLen(1))
			Expect(log.Messages()[0].Text).To(Equal("hi"))
		})

		It("appends the user message then the placeholder before any request", func() {
			input.value = "  hello world \n"

			turns := w.Submit()
			Expect(turns).To(HaveLen(1))
			Expect(chatter.callCount()).To(Equal(0))

			msgs := log.Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0]).To(Equal(chatlog.Message{Sender: chatlog.SenderUser, Text: "hello world"}))
			Expect(msgs[1].Sender).To(Equal(chatlog.SenderBot))
			Expect(msgs[1].Text).To(Equal(widget.PlaceholderText))
			Expect(msgs[1].Pending).To(BeTrue())

			Expect(input.value).To(BeEmpty())
			Expect(input.resets).To(Equal(1))
			Expect(display.scrolls).To(Equal([]int{1, 2}))

			t := turns[0]
			Expect(t.ID).NotTo(BeEmpty())
			Expect(t.Prompt).To(Equal("hello world"))
			Expect(t.Placeholder).To(Equal(chatlog.Handle(1)))
			Expect(w.InFlight()).To(Equal(1))
		})

		It("sends only the current prompt", func() {
			input.value = "first"
			w.Drive(ctx, w.Submit())
			input.value = "second"
			w.Drive(ctx, w.Submit())

			Expect(chatter.calls).To(HaveLen(2))
			Expect(chatter.calls[1]).To(Equal([]chatclient.Message{
				{Role: "user", Content: "second"},
			}))
		})
	})

	Describe("Exchange and Settle", func() {
		submit := func(prompt string) *widget.Turn {
			input.value = prompt
			turns := w.Submit()
			Expect(turns).To(HaveLen(1))
			return turns[0]
		}

		It("shows the server result", func() {
			chatter.replies["hi"] = reply{text: "Hello"}
			t := submit("hi")

			r := w.Exchange(ctx, t)
			Expect(r.Outcome).To(Equal(widget.OutcomeReply))
			Expect(w.Settle(t, r)).To(BeEmpty())

			msg, _ := log.At(t.Placeholder)
			Expect(msg.Text).To(Equal("Hello"))
			Expect(msg.Pending).To(BeFalse())
			Expect(w.InFlight()).To(Equal(0))
		})

		It("shows the fallback when the result is empty", func() {
			t := submit("hi")

			r := w.Exchange(ctx, t)
			Expect(r.Outcome).To(Equal(widget.OutcomeEmpty))
			w.Settle(t, r)

			msg, _ := log.At(t.Placeholder)
			Expect(msg.Text).To(Equal("Sorry, no response received."))
		})

		It("shows the failure text and logs the error", func() {
			chatter.replies["hi"] = reply{err: &chatclient.StatusError{Code: 500}}
			t := submit("hi")

			r := w.Exchange(ctx, t)
			Expect(r.Outcome).To(Equal(widget.OutcomeFailed))
			w.Settle(t, r)

			msg, _ := log.At(t.Placeholder)
			Expect(msg.Text).To(Equal("Failed to get response from server."))
			Expect(logBuf.String()).To(ContainSubstring("failed to fetch chat response"))
			Expect(logBuf.String()).To(ContainSubstring("server error: 500"))
			Expect(logBuf.String()).To(ContainSubstring(t.ID))
		})

		It("treats transport errors as failures", func() {
			chatter.replies["hi"] = reply{err: errors.New("connection refused")}
			t := submit("hi")
			w.Settle(t, w.Exchange(ctx, t))

			msg, _ := log.At(t.Placeholder)
			Expect(msg.Text).To(Equal(widget.FailureText))
		})

		It("scrolls to the bottom after settling", func() {
			t := submit("hi")
			before := len(display.scrolls)
			w.Settle(t, w.Exchange(ctx, t))

			Expect(display.scrolls).To(HaveLen(before + 1))
			Expect(display.scrolls[len(display.scrolls)-1]).To(Equal(log.Len()))
		})

		It("never resolves a placeholder twice", func() {
			chatter.replies["hi"] = reply{text: "Hello"}
			t := submit("hi")
			w.Settle(t, w.Exchange(ctx, t))
			w.Settle(t, widget.Result{Outcome: widget.OutcomeReply, Text: "again"})

			msg, _ := log.At(t.Placeholder)
			Expect(msg.Text).To(Equal("Hello"))
			Expect(logBuf.String()).To(ContainSubstring("could not resolve placeholder"))
		})

		It("keeps accepting turns after a failure", func() {
			chatter.replies["bad"] = reply{err: errors.New("down")}
			chatter.replies["good"] = reply{text: "ok"}

			input.value = "bad"
			w.Drive(ctx, w.Submit())
			input.value = "good"
			w.Drive(ctx, w.Submit())

			msgs := log.Messages()
			Expect(msgs).To(HaveLen(4))
			Expect(msgs[1].Text).To(Equal(widget.FailureText))
			Expect(msgs[3].Text).To(Equal("ok"))
		})
	})

	Describe("concurrent turns", func() {
		It("settles out of submission order", func() {
			chatter.replies["slow"] = reply{text: "slow reply"}
			chatter.replies["fast"] = reply{text: "fast reply"}
			slowGate := make(chan struct{})
			chatter.gates["slow"] = slowGate

			type settled struct {
				turn   *widget.Turn
				result widget.Result
			}
			results := make(chan settled, 2)
			dispatch := func(turns []*widget.Turn) {
				for _, t := range turns {
					go func() {
						results <- settled{turn: t, result: w.Exchange(ctx, t)}
					}()
				}
			}

			input.value = "slow"
			dispatch(w.Submit())
			input.value = "fast"
			dispatch(w.Submit())

			Expect(w.InFlight()).To(Equal(2))
			msgs := log.Messages()
			Expect(msgs).To(HaveLen(4))
			Expect(msgs[1].Text).To(Equal(widget.PlaceholderText))
			Expect(msgs[3].Text).To(Equal(widget.PlaceholderText))

			var first settled
			Eventually(results).Should(Receive(&first))
			Expect(first.turn.Prompt).To(Equal("fast"))
			w.Settle(first.turn, first.result)

			msgs = log.Messages()
			Expect(msgs[1].Text).To(Equal(widget.PlaceholderText))
			Expect(msgs[3].Text).To(Equal("fast reply"))

			close(slowGate)
			var second settled
			Eventually(results).Should(Receive(&second))
			w.Settle(second.turn, second.result)

			msgs = log.Messages()
			Expect(msgs[1].Text).To(Equal("slow reply"))
			Expect(msgs[3].Text).To(Equal("fast reply"))
			Expect(w.InFlight()).To(Equal(0))
		})
	})

	Describe("serial mode", func() {
		BeforeEach(func() {
			w = newWidget(true)
		})

		It("queues the request but still appends both messages", func() {
			input.value = "one"
			first := w.Submit()
			Expect(first).To(HaveLen(1))

			input.value = "two"
			Expect(w.Submit()).To(BeEmpty())
			Expect(w.Queued()).To(Equal(1))
			Expect(log.Len()).To(Equal(4))
			Expect(log.Pending()).To(Equal(2))

			chatter.replies["one"] = reply{text: "1"}
			next := w.Settle(first[0], w.Exchange(ctx, first[0]))
			Expect(next).To(HaveLen(1))
			Expect(next[0].Prompt).To(Equal("two"))
			Expect(w.Queued()).To(Equal(0))
			Expect(w.InFlight()).To(Equal(1))
		})

		It("drives queued turns to completion", func() {
			chatter.replies["one"] = reply{text: "1"}
			chatter.replies["two"] = reply{text: "2"}

			input.value = "one"
			turns := w.Submit()
			input.value = "two"
			turns = append(turns, w.Submit()...)
			w.Drive(ctx, turns)

			msgs := log.Messages()
			Expect(msgs[1].Text).To(Equal("1"))
			Expect(msgs[3].Text).To(Equal("2"))
			Expect(chatter.callCount()).To(Equal(2))
			Expect(w.InFlight()).To(Equal(0))
		})
	})
})
