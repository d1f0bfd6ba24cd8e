// Package speech talks to the voice backends: an HTTP synthesis service
// that turns bounded UTF-8 text into audio bytes, and a transcription stub
// for inbound voice notes.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxInputChars is the per-request text budget accepted by the synthesis
// backend.
const MaxInputChars = 4096

const (
	defaultModel = "tts-1"
	defaultVoice = "onyx"
)

// SynthesisError is an HTTP-style failure from the synthesis backend. Each
// failing chunk falls back to text delivery; the error never aborts the
// remaining chunks.
type SynthesisError struct {
	StatusCode int
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("speech synthesis failed: http %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Synthesizer renders text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Client is an OpenAI-compatible /v1/audio/speech client.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("missing api key for speech synthesis")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   defaultModel,
		Voice:   defaultVoice,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &SynthesisError{Err: fmt.Errorf("text is required")}
	}
	if utf8.RuneCountInString(text) > MaxInputChars {
		return nil, &SynthesisError{Err: fmt.Errorf("text exceeds %d characters", MaxInputChars)}
	}

	body, err := json.Marshal(speechRequest{
		Model:          c.Model,
		Input:          text,
		Voice:          c.Voice,
		ResponseFormat: "opus",
	})
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SynthesisError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}
	if len(raw) == 0 {
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Err: fmt.Errorf("empty audio response")}
	}
	return raw, nil
}
