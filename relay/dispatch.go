package relay

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/internal/report"
	"github.com/parleybot/parley/speech"
)

// ChunkBudget bounds the text handed to the synthesis backend per voice
// message.
const ChunkBudget = 800

// Transport is the outbound side of the messaging collaborator. Every
// method may fail; failures are reported and otherwise swallowed.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, audio []byte) error
	SendPresence(ctx context.Context, chatID int64, kind PresenceKind) error
}

// Dispatcher decides between text and chunked voice delivery.
type Dispatcher struct {
	synth    speech.Synthesizer
	reporter report.Reporter
	budget   int
}

func NewDispatcher(synth speech.Synthesizer, reporter report.Reporter) *Dispatcher {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Dispatcher{synth: synth, reporter: reporter, budget: ChunkBudget}
}

// Dispatch delivers content to the user. Voice mode synthesizes each chunk
// in order, falling back to plain text for any chunk whose synthesis
// fails; one chunk's failure never aborts the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, content string, user directory.User, transport Transport) {
	if !user.VoiceEnabled || d.synth == nil || IsCodeListing(content) {
		if err := transport.SendText(ctx, user.ChatID, content); err != nil {
			d.reporter.ReportError(fmt.Errorf("send text to %d: %w", user.ChatID, err))
		}
		return
	}

	for _, chunk := range SplitChunks(content, d.budget) {
		audio, err := d.synth.Synthesize(ctx, chunk)
		if err != nil {
			d.reporter.ReportError(err)
			if err := transport.SendText(ctx, user.ChatID, chunk); err != nil {
				d.reporter.ReportError(fmt.Errorf("send text to %d: %w", user.ChatID, err))
			}
			continue
		}
		if err := transport.SendVoice(ctx, user.ChatID, audio); err != nil {
			d.reporter.ReportError(fmt.Errorf("send voice to %d: %w", user.ChatID, err))
		}
	}
}

// SplitChunks splits content into ordered chunks of at most budget
// characters, breaking at whitespace so no word is split. A single word
// longer than the budget is cut at the budget; the backend's hard limit
// wins over word integrity in that degenerate case.
func SplitChunks(content string, budget int) []string {
	if budget <= 0 {
		budget = ChunkBudget
	}
	runes := []rune(content)
	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= budget {
			chunks = append(chunks, string(runes))
			break
		}
		cut := -1
		for i := budget; i >= 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut <= 0 {
			cut = budget
		}
		chunks = append(chunks, strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace))
		runes = runes[cut:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	return chunks
}

// codeKeywords and the brace/paren/backtick scan over-match prose; a false
// code hit only forces a text reply.
var codeKeywords = []string{
	"func ",
	"def ",
	"class ",
	"import ",
	"return ",
	"#include",
	"package ",
}

const codeIndent = "    "

// IsCodeListing classifies content as a code listing when more than half
// of its lines start with a fixed indent run, or it contains a known
// keyword, or it contains any of { } ( ) `.
func IsCodeListing(content string) bool {
	if strings.ContainsAny(content, "{}()`") {
		return true
	}
	for _, kw := range codeKeywords {
		if strings.Contains(content, kw) {
			return true
		}
	}
	lines := strings.Split(content, "\n")
	indented := 0
	for _, line := range lines {
		if strings.HasPrefix(line, codeIndent) || strings.HasPrefix(line, "\t") {
			indented++
		}
	}
	return indented*2 > len(lines)
}
