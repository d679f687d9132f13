package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/adapter"
	"github.com/kapu/enka-kakao-bot-go/internal/command"
	"github.com/kapu/enka-kakao-bot-go/internal/config"
	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/iris"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sender delivers replies to a chat room.
type Sender interface {
	SendMessage(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room string, image []byte) error
}

// Listener is the inbound message stream.
type Listener interface {
	Run(ctx context.Context) error
	OnMessage(callback iris.MessageCallback) func()
	OnStateChange(callback iris.StateCallback) func()
}

// ReferenceWatcher reloads reference data when the files on disk change.
type ReferenceWatcher interface {
	Watch(ctx context.Context, debounce time.Duration) error
}

type Dependencies struct {
	Config         *config.Config
	Logger         *zap.Logger
	Sender         Sender
	Listener       Listener
	MessageAdapter *adapter.MessageAdapter
	Formatter      *adapter.ResponseFormatter
	Commands       command.Dependencies
	Watcher        ReferenceWatcher // nil disables watching
	Closers        []func()
}

// Bot routes chat messages to command handlers.
type Bot struct {
	deps       *Dependencies
	logger     *zap.Logger
	dispatcher command.Dispatcher
	registry   *command.Registry

	handlers conc.WaitGroup

	mu      sync.Mutex
	baseCtx context.Context
}

func NewBot(deps *Dependencies) (*Bot, error) {
	if deps == nil {
		return nil, fmt.Errorf("bot dependencies must not be nil")
	}
	if deps.Sender == nil || deps.Listener == nil || deps.MessageAdapter == nil || deps.Formatter == nil {
		return nil, fmt.Errorf("bot dependencies are incomplete")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bot{
		deps:     deps,
		logger:   logger,
		registry: command.NewRegistry(),
		baseCtx:  context.Background(),
	}

	cmdDeps := deps.Commands
	cmdDeps.Formatter = deps.Formatter
	cmdDeps.Logger = logger
	cmdDeps.SendMessage = b.sendMessage
	cmdDeps.SendImage = b.sendImage
	cmdDeps.SendError = b.sendMessage
	b.registry.RegisterAll(&cmdDeps)
	b.dispatcher = command.NewSequentialDispatcher(b.registry, command.NormalizeEvent)

	logger.Info("Commands registered", zap.Int("count", b.registry.Count()))
	return b, nil
}

// Start blocks until ctx is cancelled or the listener gives up.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx = ctx
	b.mu.Unlock()

	unsubscribe := b.deps.Listener.OnMessage(b.handleMessage)
	defer unsubscribe()
	unsubscribeState := b.deps.Listener.OnStateChange(func(state iris.WebSocketState) {
		b.logger.Info("Iris connection state changed", zap.String("state", string(state)))
	})
	defer unsubscribeState()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.deps.Listener.Run(gctx)
	})
	if b.deps.Watcher != nil {
		g.Go(func() error {
			return b.deps.Watcher.Watch(gctx, constants.WatcherConfig.Debounce)
		})
	}

	b.logger.Info("Bot started")
	return g.Wait()
}

// Shutdown waits for in-flight commands, then releases resources.
func (b *Bot) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.handlers.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("timed out waiting for commands: %w", ctx.Err())
	}

	for i := len(b.deps.Closers) - 1; i >= 0; i-- {
		b.deps.Closers[i]()
	}
	return err
}

func (b *Bot) handleMessage(message *iris.Message) {
	parsed := b.deps.MessageAdapter.ParseMessage(message)
	if parsed == nil || parsed.Type == domain.CommandUnknown {
		return
	}

	cmdCtx := newCommandContext(message)
	b.logger.Info("Command received",
		zap.String("type", parsed.Type.String()),
		zap.String("room", cmdCtx.Room),
		zap.String("sender", cmdCtx.Sender),
	)

	b.mu.Lock()
	ctx := b.baseCtx
	b.mu.Unlock()

	b.handlers.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Command panicked", zap.Any("panic", r), zap.String("type", parsed.Type.String()))
			}
		}()

		event := command.CommandEvent{Type: parsed.Type, Params: parsed.Params}
		if _, err := b.dispatcher.Publish(ctx, cmdCtx, event); err != nil {
			b.logger.Error("Command failed", zap.String("type", parsed.Type.String()), zap.Error(err))
			_ = b.sendMessage(cmdCtx.Room, b.deps.Formatter.FormatError("명령을 처리하지 못했습니다."))
		}
	})
}

func newCommandContext(message *iris.Message) *domain.CommandContext {
	room := message.Room
	isGroup := true
	if message.JSON != nil && message.JSON.ChatID != "" {
		room = message.JSON.ChatID
	}
	sender := message.SenderName()
	if sender != "" && sender == message.Room {
		isGroup = false
	}
	return domain.NewCommandContext(room, message.Room, sender, message.UserID(), message.Msg, isGroup)
}

func (b *Bot) sendMessage(room, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return b.deps.Sender.SendMessage(ctx, room, message)
}

func (b *Bot) sendImage(room string, image []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return b.deps.Sender.SendImage(ctx, room, image)
}
