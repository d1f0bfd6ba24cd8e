package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/parleybot/parley/llm"
)

// sentEvent records one outbound transport call in order.
type sentEvent struct {
	Kind   string // "text" | "voice" | "presence"
	ChatID int64
	Text   string
	Audio  []byte
}

type fakeTransport struct {
	mu     sync.Mutex
	events []sentEvent
	fail   map[string]error // kind -> error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fail: map[string]error{}}
}

func (f *fakeTransport) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["text"]; err != nil {
		return err
	}
	f.events = append(f.events, sentEvent{Kind: "text", ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) SendVoice(ctx context.Context, chatID int64, audio []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["voice"]; err != nil {
		return err
	}
	f.events = append(f.events, sentEvent{Kind: "voice", ChatID: chatID, Audio: audio})
	return nil
}

func (f *fakeTransport) SendPresence(ctx context.Context, chatID int64, kind PresenceKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["presence"]; err != nil {
		return err
	}
	f.events = append(f.events, sentEvent{Kind: "presence", ChatID: chatID, Text: string(kind)})
	return nil
}

// snapshot returns delivered messages (presence excluded).
func (f *fakeTransport) snapshot() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.Kind != "presence" {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) presenceKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		if e.Kind == "presence" {
			out = append(out, e.Text)
		}
	}
	return out
}

// fakeSynth synthesizes every chunk except those whose 1-based call index
// is listed in failOn.
type fakeSynth struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
	inputs []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, text)
	if f.failOn[f.calls] {
		return nil, fmt.Errorf("speech synthesis failed: http 503: voice unavailable")
	}
	return []byte("audio:" + text[:min(8, len(text))]), nil
}

// fakeCompleter replies with a fixed text or error and records requests.
type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []llm.Request
}

func (f *fakeCompleter) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Text: f.reply}, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}
