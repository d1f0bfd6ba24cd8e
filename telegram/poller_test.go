package telegram

import (
	"context"
	"net/http"
	"testing"

	"github.com/parleybot/parley/internal/report"
)

func TestToInboundText(t *testing.T) {
	p := &Poller{Reporter: report.Nop{}}

	inbound, ok := p.toInbound(context.Background(), Update{
		UpdateID: 1,
		Message: &Message{
			Chat: &Chat{ID: 7},
			From: &User{ID: 1, Username: "alice"},
			Text: "  Hello  ",
		},
	})
	if !ok {
		t.Fatalf("text update dropped")
	}
	if inbound.ChatID != 7 || inbound.Username != "alice" || inbound.Text != "Hello" {
		t.Fatalf("inbound = %+v", inbound)
	}
}

func TestToInboundDropsBotsAndEmpties(t *testing.T) {
	p := &Poller{Reporter: report.Nop{}}
	ctx := context.Background()

	cases := []Update{
		{UpdateID: 1},
		{UpdateID: 2, Message: &Message{Chat: &Chat{ID: 7}}},
		{UpdateID: 3, Message: &Message{Chat: &Chat{ID: 7}, From: &User{ID: 2, Username: "betabot", IsBot: true}, Text: "hi"}},
		{UpdateID: 4, Message: &Message{Chat: &Chat{ID: 7}, From: &User{ID: 1, Username: "alice"}}},
	}
	for _, u := range cases {
		if _, ok := p.toInbound(ctx, u); ok {
			t.Fatalf("update %d accepted, want drop", u.UpdateID)
		}
	}
}

func TestToInboundDownloadsVoice(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/botTOKEN/getFile":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"v1","file_path":"voice/note.oga"}}`))
		case r.URL.Path == "/file/botTOKEN/voice/note.oga":
			_, _ = w.Write([]byte("ogg audio"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	p := &Poller{API: api, Reporter: report.Nop{}}

	inbound, ok := p.toInbound(context.Background(), Update{
		UpdateID: 1,
		Message: &Message{
			Chat:  &Chat{ID: 7},
			From:  &User{ID: 1, Username: "alice"},
			Voice: &Voice{FileID: "v1"},
		},
	})
	if !ok {
		t.Fatalf("voice update dropped")
	}
	if string(inbound.Voice) != "ogg audio" || inbound.Text != "" {
		t.Fatalf("inbound = %+v", inbound)
	}
}

func TestToInboundVoiceDownloadFailure(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	p := &Poller{API: api, Reporter: report.Nop{}}

	if _, ok := p.toInbound(context.Background(), Update{
		UpdateID: 1,
		Message: &Message{
			Chat:  &Chat{ID: 7},
			From:  &User{ID: 1, Username: "alice"},
			Voice: &Voice{FileID: "v1"},
		},
	}); ok {
		t.Fatalf("failed download accepted, want drop")
	}
}
