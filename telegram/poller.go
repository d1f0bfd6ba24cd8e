package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parleybot/parley/internal/report"
	"github.com/parleybot/parley/relay"
)

const (
	DefaultPollTimeout   = 30 * time.Second
	DefaultMaxVoiceBytes = 20 * 1024 * 1024
)

// Poller runs the getUpdates long-poll loop and feeds each message to the
// router as an independent unit of work.
type Poller struct {
	API      *Client
	Router   *relay.Router
	Reporter report.Reporter
	Logger   *slog.Logger

	PollTimeout   time.Duration
	MaxVoiceBytes int64
}

func (p *Poller) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Poller) pollTimeout() time.Duration {
	if p.PollTimeout > 0 {
		return p.PollTimeout
	}
	return DefaultPollTimeout
}

// Run polls until ctx is cancelled, then waits for in-flight work to
// drain.
func (p *Poller) Run(ctx context.Context) error {
	logger := p.logger()

	me, err := p.API.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.Info("telegram_start", "bot_username", me.Username, "bot_id", me.ID)

	var offset int64
	for {
		updates, nextOffset, err := p.API.GetUpdates(ctx, offset, p.pollTimeout())
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Info("telegram_stop", "reason", "context_canceled")
				p.Router.Wait()
				return nil
			}
			if IsPollTimeout(err) {
				logger.Debug("telegram_get_updates_timeout", "error", err.Error())
			} else {
				logger.Warn("telegram_get_updates_error", "error", err.Error())
				p.Reporter.ReportError(err)
			}
			time.Sleep(1 * time.Second)
			continue
		}
		offset = nextOffset

		for _, u := range updates {
			inbound, ok := p.toInbound(ctx, u)
			if !ok {
				continue
			}
			p.Router.Route(ctx, inbound)
		}
	}
}

// toInbound converts one update into router input. Messages from bots,
// without a sender, or without text or voice are dropped.
func (p *Poller) toInbound(ctx context.Context, u Update) (relay.Inbound, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || msg.From.IsBot {
		return relay.Inbound{}, false
	}
	username := strings.TrimSpace(msg.From.Username)
	inbound := relay.Inbound{
		ChatID:   msg.Chat.ID,
		Username: username,
		Text:     strings.TrimSpace(msg.Text),
	}

	if inbound.Text == "" && msg.Voice != nil {
		audio, err := p.API.DownloadVoice(ctx, msg.Voice.FileID, p.MaxVoiceBytes)
		if err != nil {
			p.Reporter.ReportError(fmt.Errorf("download voice from %d: %w", msg.Chat.ID, err))
			return relay.Inbound{}, false
		}
		inbound.Voice = audio
	}
	if inbound.Text == "" && len(inbound.Voice) == 0 {
		return relay.Inbound{}, false
	}
	return inbound, true
}
