package llm

import (
	"context"
	"time"
)

// Role values carried on chat messages. They match the wire format of
// OpenAI-compatible completion backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model    string
	Messages []Message
}

// Client is the completion boundary. Implementations send an ordered
// message sequence and return exactly one reply or a typed failure; the
// caller never retries.
type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
