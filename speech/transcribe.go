package speech

import "context"

// Transcriber turns an inbound voice note into text. The current
// implementation is a stub: it returns a transcript string, or "" when the
// audio could not be transcribed. Callers treat "" as a failed exchange.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) string
}

// NopTranscriber always reports an empty transcript.
type NopTranscriber struct{}

func (NopTranscriber) Transcribe(ctx context.Context, audio []byte) string { return "" }
