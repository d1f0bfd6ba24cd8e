package history

import (
	"context"
	"fmt"
	"time"
)

// Roles a turn may carry. Persona turns are injected in memory and never
// reach the backend store, but the role vocabulary is shared.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultWindow is the conversation window handed to the completion
// backend: the most recent N turns, oldest first.
const DefaultWindow = 10

// Turn is one role-tagged message in a conversation.
type Turn struct {
	ChatID    int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// Backend is the persistent side of the log. RecentTurns returns at most
// limit turns, most recent first; the Log reverses them into chronological
// order.
type Backend interface {
	AppendTurn(ctx context.Context, turn Turn) error
	RecentTurns(ctx context.Context, chatID int64, limit int) ([]Turn, error)
	ClearHistory(ctx context.Context, chatID int64) error
}

// Log is the append-only per-conversation message log with a bounded
// retrieval window.
type Log struct {
	backend Backend
	window  int
}

func NewLog(backend Backend) *Log {
	return NewLogWithWindow(backend, DefaultWindow)
}

func NewLogWithWindow(backend Backend, window int) *Log {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Log{backend: backend, window: window}
}

// Window returns the configured window size.
func (l *Log) Window() int { return l.window }

// Append durably writes one turn. A failure is fatal for this turn only;
// callers proceed with the exchange.
func (l *Log) Append(ctx context.Context, chatID int64, role, content string) error {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("role is invalid: %q", role)
	}
	return l.backend.AppendTurn(ctx, Turn{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// Recent returns the window of most recent turns for the chat in
// chronological (oldest first) order, never more than the window size.
func (l *Log) Recent(ctx context.Context, chatID int64) ([]Turn, error) {
	turns, err := l.backend.RecentTurns(ctx, chatID, l.window)
	if err != nil {
		return nil, err
	}
	if len(turns) > l.window {
		turns = turns[:l.window]
	}
	// The backend hands back a most-recent-first page; reverse it so the
	// completion backend sees the conversation in order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Clear hard-deletes every turn for the chat. Clearing an empty history is
// not an error.
func (l *Log) Clear(ctx context.Context, chatID int64) error {
	return l.backend.ClearHistory(ctx, chatID)
}
