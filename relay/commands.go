package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/history"
	"github.com/parleybot/parley/internal/report"
)

// CommandMarker introduces a command message.
const CommandMarker = '/'

const helpManifest = `These commands are supported:
/help - display this text.
/new - New conversation
/text - Text responses
/voice - Voice responses
/broadcast <text> - Broadcast message (reaches every registered user)`

type commandKind int

const (
	cmdUnrecognized commandKind = iota
	cmdHelp
	cmdNew
	cmdText
	cmdVoice
	cmdBroadcast
)

// parseCommand splits "/name args" into a tagged variant plus the argument
// tail. Unrecognized names map to an explicit variant handled by a no-op
// branch rather than a swallowed error.
func parseCommand(text string) (commandKind, string) {
	body := strings.TrimPrefix(text, string(CommandMarker))
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return cmdUnrecognized, ""
	}
	arg := strings.TrimSpace(strings.TrimPrefix(body, fields[0]))
	switch fields[0] {
	case "help":
		return cmdHelp, arg
	case "new":
		return cmdNew, arg
	case "text":
		return cmdText, arg
	case "voice":
		return cmdVoice, arg
	case "broadcast":
		return cmdBroadcast, arg
	default:
		return cmdUnrecognized, ""
	}
}

// VoiceToggler is the slice of the persistent store commands mutate.
type VoiceToggler interface {
	SetVoiceEnabled(ctx context.Context, username string, enabled bool) error
}

// CommandProcessor executes the administrative commands. Each command
// replies exactly once and runs synchronously within its routed unit of
// work.
type CommandProcessor struct {
	Directory *directory.Directory
	Source    directory.Source
	Log       *history.Log
	Store     VoiceToggler
	Reporter  report.Reporter
	Logger    *slog.Logger
}

func (p *CommandProcessor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Handle runs one command for an authorized user. Unknown command text is
// a silent no-op.
func (p *CommandProcessor) Handle(ctx context.Context, user directory.User, text string, transport Transport) {
	kind, arg := parseCommand(text)

	reply := func(msg string) {
		if err := transport.SendText(ctx, user.ChatID, msg); err != nil {
			p.Reporter.ReportError(fmt.Errorf("send command reply to %d: %w", user.ChatID, err))
		}
	}

	switch kind {
	case cmdHelp:
		reply(helpManifest)

	case cmdNew:
		if err := p.Log.Clear(ctx, user.ChatID); err != nil {
			p.Reporter.ReportError(err)
			reply(Apology)
			return
		}
		reply("New conversation started")

	case cmdText:
		if p.toggleVoice(ctx, user.Username, false, reply) {
			reply("Text responses enabled")
		}

	case cmdVoice:
		if p.toggleVoice(ctx, user.Username, true, reply) {
			reply("Voice responses enabled")
		}

	case cmdBroadcast:
		p.broadcast(ctx, user, arg, transport, reply)

	case cmdUnrecognized:
		// Silent no-op, matching long-standing behavior.
		p.logger().Debug("unrecognized_command", "username", user.Username)
	}
}

// toggleVoice persists the preference first and refreshes the directory
// snapshot after, so a reload failure never leaves memory ahead of
// storage. The narrow window where memory is stale after a failed reload
// is tolerated until the next successful reload.
func (p *CommandProcessor) toggleVoice(ctx context.Context, username string, enabled bool, reply func(string)) bool {
	if err := p.Store.SetVoiceEnabled(ctx, username, enabled); err != nil {
		p.Reporter.ReportError(err)
		reply(Apology)
		return false
	}
	if _, err := p.Directory.Reload(ctx, p.Source); err != nil {
		p.Reporter.ReportError(fmt.Errorf("reload after voice toggle: %w", err))
	}
	return true
}

// broadcast fans arg out to every user with a registered chat. Recipients
// without a chat id are silently skipped; one recipient's failure never
// aborts the rest. Any authorized user may broadcast.
func (p *CommandProcessor) broadcast(ctx context.Context, sender directory.User, arg string, transport Transport, reply func(string)) {
	if strings.TrimSpace(arg) == "" {
		reply("Nothing to broadcast")
		return
	}
	count := 0
	for _, u := range p.Directory.Snapshot() {
		if !u.HasChat() {
			continue
		}
		if err := transport.SendText(ctx, u.ChatID, arg); err != nil {
			p.Reporter.ReportError(fmt.Errorf("broadcast to %s: %w", u.Username, err))
			continue
		}
		count++
	}
	p.logger().Info("broadcast_sent", "from", sender.Username, "recipients", count)
	reply(fmt.Sprintf("Message successfully broadcast to %d users!", count))
}
