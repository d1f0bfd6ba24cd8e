// Package relay is the message-processing core: authorization, history
// assembly, presence heartbeat, completion round trip, and response
// delivery.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/history"
	"github.com/parleybot/parley/internal/report"
	"github.com/parleybot/parley/llm"
	"github.com/parleybot/parley/persona"
	"github.com/parleybot/parley/speech"
)

// Fixed user-facing replies.
const (
	AccessDenied = "Access denied"
	Apology      = "I broke down. I feel bad"
)

// ChatRegistrar persists a user's conversation channel on first contact.
type ChatRegistrar interface {
	RegisterChat(ctx context.Context, username string, chatID int64) error
}

// Exchange runs one conversational round trip. All collaborators are
// required except Transcriber, which defaults to the stub.
type Exchange struct {
	Log         *history.Log
	Persona     persona.Persona
	Completer   llm.Client
	Dispatcher  *Dispatcher
	Registrar   ChatRegistrar
	Directory   *directory.Directory
	Source      directory.Source
	Transcriber speech.Transcriber
	Reporter    report.Reporter
	Logger      *slog.Logger

	// HeartbeatInterval defaults to DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration
}

func (e *Exchange) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Exchange) interval() time.Duration {
	if e.HeartbeatInterval > 0 {
		return e.HeartbeatInterval
	}
	return DefaultHeartbeatInterval
}

// Handle processes one authorized conversational message end to end. The
// presence heartbeat it owns is cancelled on every exit path before Handle
// returns.
func (e *Exchange) Handle(ctx context.Context, user directory.User, msg Inbound, transport Transport) {
	exchangeID := uuid.NewString()
	log := e.logger().With("exchange_id", exchangeID, "username", user.Username, "chat_id", msg.ChatID)

	user = e.registerFirstContact(ctx, user, msg.ChatID, log)

	kind := PresenceKindFor(user.VoiceEnabled)
	hb := NewHeartbeat()
	if err := hb.Start(e.interval(), func() {
		if err := transport.SendPresence(ctx, msg.ChatID, kind); err != nil {
			e.Reporter.ReportError(fmt.Errorf("send presence to %d: %w", msg.ChatID, err))
		}
	}); err != nil {
		e.Reporter.ReportError(err)
	}
	defer hb.Cancel()

	text := msg.Text
	if text == "" && len(msg.Voice) > 0 {
		text = e.transcribe(ctx, msg.Voice)
		if text == "" {
			log.Warn("transcription_empty")
			e.apologize(ctx, msg.ChatID, transport, fmt.Errorf("transcription returned empty text"))
			return
		}
	}
	if text == "" {
		return
	}
	log.Info("inbound_message", "text", text)

	// The user turn is logged before the window is read so the window sees
	// its own write. A storage failure drops the turn from history but the
	// exchange proceeds.
	if err := e.Log.Append(ctx, msg.ChatID, history.RoleUser, text); err != nil {
		e.Reporter.ReportError(err)
	}

	window, err := e.Log.Recent(ctx, msg.ChatID)
	if err != nil {
		e.Reporter.ReportError(err)
		// Degrade to the current message alone rather than hang the
		// user-visible flow on a read fault.
		window = []history.Turn{{ChatID: msg.ChatID, Role: history.RoleUser, Content: text}}
	}

	messages := e.Persona.Build(toMessages(window), user)
	result, err := e.Completer.Chat(ctx, llm.Request{Messages: messages})
	if err != nil {
		log.Warn("completion_failed", "error", err.Error())
		e.apologize(ctx, msg.ChatID, transport, err)
		return
	}
	log.Info("assistant_reply", "text", result.Text)

	if err := e.Log.Append(ctx, msg.ChatID, history.RoleAssistant, result.Text); err != nil {
		e.Reporter.ReportError(err)
	}

	e.Dispatcher.Dispatch(ctx, result.Text, user, transport)
}

// registerFirstContact persists the chat id the first time a user is seen
// and refreshes the directory snapshot. Failures are reported; the
// exchange continues with the in-memory record.
func (e *Exchange) registerFirstContact(ctx context.Context, user directory.User, chatID int64, log *slog.Logger) directory.User {
	if user.HasChat() || chatID == 0 || e.Registrar == nil {
		if !user.HasChat() {
			user.ChatID = chatID
		}
		return user
	}
	if err := e.Registrar.RegisterChat(ctx, user.Username, chatID); err != nil {
		e.Reporter.ReportError(err)
	} else if e.Directory != nil && e.Source != nil {
		if _, err := e.Directory.Reload(ctx, e.Source); err != nil {
			e.Reporter.ReportError(fmt.Errorf("reload after registration: %w", err))
		}
		log.Info("chat_registered")
	}
	user.ChatID = chatID
	return user
}

func (e *Exchange) transcribe(ctx context.Context, audio []byte) string {
	tr := e.Transcriber
	if tr == nil {
		tr = speech.NopTranscriber{}
	}
	return tr.Transcribe(ctx, audio)
}

// apologize sends the fixed apology and reports the underlying error once.
func (e *Exchange) apologize(ctx context.Context, chatID int64, transport Transport, cause error) {
	e.Reporter.ReportError(cause)
	if err := transport.SendText(ctx, chatID, Apology); err != nil {
		e.Reporter.ReportError(fmt.Errorf("send apology to %d: %w", chatID, err))
	}
}

func toMessages(turns []history.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
