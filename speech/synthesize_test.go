package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte{0x4f, 0x67, 0x67, 0x53})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "sk-test")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	audio, err := c.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(audio) != 4 {
		t.Fatalf("audio length = %d, want 4", len(audio))
	}
}

func TestSynthesizeRejectsOverBudgetText(t *testing.T) {
	c, err := NewClient("http://unused.invalid", "sk-test")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = c.Synthesize(context.Background(), strings.Repeat("a", MaxInputChars+1))
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want SynthesisError", err)
	}
}

func TestSynthesizeBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "voice unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "sk-test")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = c.Synthesize(context.Background(), "hello")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Synthesize() error = %v, want SynthesisError", err)
	}
	if synthErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", synthErr.StatusCode)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", " "); err == nil {
		t.Fatalf("NewClient() error = nil, want missing key failure")
	}
}
