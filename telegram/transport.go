package telegram

import (
	"context"
	"fmt"

	"github.com/parleybot/parley/relay"
)

// Transport adapts the Bot API client to the relay's delivery interface.
type Transport struct {
	API *Client
}

func (t *Transport) SendText(ctx context.Context, chatID int64, text string) error {
	return t.API.SendMessage(ctx, chatID, text)
}

func (t *Transport) SendVoice(ctx context.Context, chatID int64, audio []byte) error {
	return t.API.SendVoice(ctx, chatID, audio)
}

func (t *Transport) SendPresence(ctx context.Context, chatID int64, kind relay.PresenceKind) error {
	action, err := chatAction(kind)
	if err != nil {
		return err
	}
	return t.API.SendChatAction(ctx, chatID, action)
}

// chatAction maps a presence kind to the Bot API chat action name.
func chatAction(kind relay.PresenceKind) (string, error) {
	switch kind {
	case relay.PresenceTyping:
		return "typing", nil
	case relay.PresenceRecording:
		return "record_voice", nil
	default:
		return "", fmt.Errorf("unknown presence kind: %q", kind)
	}
}
