package infrastructure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Postback","username":"postback_bot"}}`

type telegramStub struct {
	mu        sync.Mutex
	sent      []map[string]string
	sendReply string
	updates   atomic.Int32
}

func (s *telegramStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(getMeResponse))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm: %v", err)
			}
			s.mu.Lock()
			s.sent = append(s.sent, map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			})
			s.mu.Unlock()
			reply := s.sendReply
			if reply == "" {
				reply = `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`
			}
			_, _ = w.Write([]byte(reply))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if s.updates.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[
					{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":777,"type":"private"},"from":{"id":9,"is_bot":false,"first_name":"Op","username":"op"},"text":"hello"}},
					{"update_id":11,"message":{"message_id":2,"date":0,"chat":{"id":777,"type":"private"},"from":{"id":9,"is_bot":false,"first_name":"Op","username":"op"},"text":"/stats_7days@postback_bot","entities":[{"type":"bot_command","offset":0,"length":25}]}}
				]}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *telegramStub) messages() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.sent...)
}

func newTestBot(t *testing.T, stub *telegramStub) *TelegramBot {
	t.Helper()
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	bot, err := NewTelegramBot("123:abc", server.URL+"/bot%s/%s", time.Second, 0, 100, 10, testLogger(), testMetrics())
	if err != nil {
		t.Fatalf("NewTelegramBot: %v", err)
	}
	return bot
}

func TestTelegramBot_SendHTML(t *testing.T) {
	stub := &telegramStub{}
	bot := newTestBot(t, stub)

	if bot.Username() != "postback_bot" {
		t.Fatalf("unexpected username %s", bot.Username())
	}
	if err := bot.Send(context.Background(), "42", "<b>hi</b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sent := stub.messages()
	if len(sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sent))
	}
	if sent[0]["chat_id"] != "42" || sent[0]["text"] != "<b>hi</b>" || sent[0]["parse_mode"] != "HTML" {
		t.Fatalf("unexpected request: %v", sent[0])
	}
}

func TestTelegramBot_SendToChannelName(t *testing.T) {
	stub := &telegramStub{}
	bot := newTestBot(t, stub)

	if err := bot.Send(context.Background(), "@postbacks", "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := stub.messages()[0]["chat_id"]; got != "@postbacks" {
		t.Fatalf("expected channel username as chat_id, got %s", got)
	}
}

func TestTelegramBot_SendAPIError(t *testing.T) {
	stub := &telegramStub{sendReply: `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`}
	bot := newTestBot(t, stub)

	err := bot.Send(context.Background(), "42", "hi")
	if err == nil || !strings.Contains(err.Error(), "Forbidden") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestTelegramBot_SendInvalidDestination(t *testing.T) {
	stub := &telegramStub{}
	bot := newTestBot(t, stub)

	if err := bot.Send(context.Background(), "YOUR_CHAT_ID", "hi"); err == nil {
		t.Fatal("expected error for placeholder chat id")
	}
	if len(stub.messages()) != 0 {
		t.Fatal("nothing should be sent for an invalid chat id")
	}
}

func TestTelegramBot_InvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	if _, err := NewTelegramBot("bad", server.URL+"/bot%s/%s", time.Second, 0, 1, 1, testLogger(), testMetrics()); err == nil {
		t.Fatal("expected error for rejected token")
	}
}

func TestTelegramBot_Commands(t *testing.T) {
	stub := &telegramStub{}
	bot := newTestBot(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := bot.Commands(ctx)

	select {
	case cmd := <-commands:
		if cmd.Name != "stats_7days" || cmd.ChatID != "777" || cmd.From != "op" || cmd.MessageID != 2 {
			t.Fatalf("unexpected command: %+v", cmd)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no command received")
	}

	cancel()
	select {
	case _, ok := <-commands:
		if ok {
			t.Fatal("expected channel to close after cancel")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("command channel not closed")
	}
}
