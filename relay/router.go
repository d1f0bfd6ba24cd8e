package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/internal/report"
)

// Inbound is one unit of work from the messaging transport.
type Inbound struct {
	ChatID   int64
	Username string
	Text     string
	Voice    []byte
}

// Outcome classifies how the router handled an inbound message.
type Outcome int

const (
	OutcomeDenied Outcome = iota
	OutcomeCommand
	OutcomeMessage
	OutcomeIgnored
)

// Router authorizes senders and dispatches commands and conversational
// messages, each as an independent unit of concurrent work. Routing never
// blocks on an in-flight exchange.
type Router struct {
	Directory *directory.Directory
	Exchange  *Exchange
	Commands  *CommandProcessor
	Transport Transport
	Reporter  report.Reporter
	Logger    *slog.Logger

	wg sync.WaitGroup
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Route authorizes the sender, classifies the message, and hands it off
// for concurrent processing. It returns as soon as the work is launched.
func (r *Router) Route(ctx context.Context, msg Inbound) Outcome {
	user, ok := r.Directory.Find(msg.Username)
	if !ok {
		r.logger().Warn("access_denied", "username", msg.Username, "chat_id", msg.ChatID)
		if err := r.Transport.SendText(ctx, msg.ChatID, AccessDenied); err != nil {
			r.Reporter.ReportError(fmt.Errorf("send access denied to %d: %w", msg.ChatID, err))
		}
		return OutcomeDenied
	}

	if isCommand(msg.Text) {
		// Commands bypass first-contact registration in the exchange, so
		// make the reply channel explicit here.
		if !user.HasChat() {
			user.ChatID = msg.ChatID
		}
		r.spawn(func() { r.Commands.Handle(ctx, user, msg.Text, r.Transport) })
		return OutcomeCommand
	}
	if msg.Text == "" && len(msg.Voice) == 0 {
		return OutcomeIgnored
	}
	r.spawn(func() { r.Exchange.Handle(ctx, user, msg, r.Transport) })
	return OutcomeMessage
}

// Wait blocks until every launched unit of work has finished. Used at
// shutdown and by tests.
func (r *Router) Wait() { r.wg.Wait() }

func (r *Router) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

// isCommand reports whether text is a command: non-empty with the marker
// as its first character. Empty input falls through as a non-command.
func isCommand(text string) bool {
	return len(text) > 0 && text[0] == CommandMarker
}
