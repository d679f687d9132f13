package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/adapter"
	"github.com/kapu/enka-kakao-bot-go/internal/command"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/iris"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu       sync.Mutex
	rooms    []string
	messages []string
}

func (s *recordingSender) SendMessage(_ context.Context, room, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, room)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) SendImage(context.Context, string, []byte) error {
	return nil
}

// scriptedListener delivers its messages once Run starts, then returns.
type scriptedListener struct {
	messages []*iris.Message
	callback iris.MessageCallback
}

func (l *scriptedListener) Run(context.Context) error {
	for _, m := range l.messages {
		l.callback(m)
	}
	return nil
}

func (l *scriptedListener) OnMessage(callback iris.MessageCallback) func() {
	l.callback = callback
	return func() {}
}

func (l *scriptedListener) OnStateChange(iris.StateCallback) func() {
	return func() {}
}

type noAccounts struct{}

func (noAccounts) Get(context.Context, string) (*domain.AccountBinding, error) { return nil, nil }
func (noAccounts) Bind(_ context.Context, _ string, uid string) (string, error) {
	return uid, nil
}

func strPtr(s string) *string { return &s }

func TestBotRoutesMessagesToCommands(t *testing.T) {
	sender := &recordingSender{}
	listener := &scriptedListener{messages: []*iris.Message{
		{Msg: "hello there", Room: "테스트방", Sender: strPtr("tester")},
		{Msg: "!help", Room: "테스트방", Sender: strPtr("tester"), JSON: &iris.MessageJSON{ChatID: "chat-1", UserID: "u1"}},
		{Msg: "!원 아야카", Room: "테스트방", Sender: strPtr("tester"), JSON: &iris.MessageJSON{ChatID: "chat-1", UserID: "u1"}},
	}}
	formatter := adapter.NewResponseFormatter("!", "ko")

	closed := false
	b, err := NewBot(&Dependencies{
		Logger:         zap.NewNop(),
		Sender:         sender,
		Listener:       listener,
		MessageAdapter: adapter.NewMessageAdapter("!"),
		Formatter:      formatter,
		Commands:       command.Dependencies{Accounts: noAccounts{}},
		Closers:        []func(){func() { closed = true }},
	})
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !closed {
		t.Fatalf("expected closers to run on shutdown")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.messages) != 2 {
		t.Fatalf("expected 2 replies, got %v", sender.messages)
	}
	var sawHelp, sawBind bool
	for i, m := range sender.messages {
		if sender.rooms[i] != "chat-1" {
			t.Fatalf("reply %d sent to %q", i, sender.rooms[i])
		}
		sawHelp = sawHelp || m == formatter.FormatHelp()
		sawBind = sawBind || m == formatter.FormatBindFirst()
	}
	if !sawHelp || !sawBind {
		t.Fatalf("missing expected replies: %v", sender.messages)
	}
}

func TestNewBotRejectsIncompleteDependencies(t *testing.T) {
	if _, err := NewBot(&Dependencies{Logger: zap.NewNop()}); err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Fatalf("expected incomplete dependencies error, got %v", err)
	}
}
