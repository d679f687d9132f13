package command

import (
	"context"

	"github.com/kapu/enka-kakao-bot-go/internal/adapter"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/viewer"
	"go.uber.org/zap"
)

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error
}

// CommandEvent is one parsed command awaiting execution.
type CommandEvent struct {
	Type   domain.CommandType
	Params map[string]any
}

type Dispatcher interface {
	Publish(ctx context.Context, cmdCtx *domain.CommandContext, events ...CommandEvent) (int, error)
}

type Viewer interface {
	ShowCharacter(ctx context.Context, uid, query string, onRender func(*domain.CharacterReference)) (*viewer.Card, error)
	Roster(ctx context.Context, uid string, refresh bool) (*domain.ProfileSnapshot, error)
	Reference() *domain.ReferenceData
}

type AccountStore interface {
	Get(ctx context.Context, senderID string) (*domain.AccountBinding, error)
	Bind(ctx context.Context, senderID, uid string) (string, error)
}

type ReferenceUpdater interface {
	Refresh(ctx context.Context, force bool) error
	Current() *domain.ReferenceData
}

type AliasRegistrar interface {
	Register(ctx context.Context, id domain.CharacterID, name string) error
	Resolve(query string) (domain.CharacterID, bool)
}

type Dependencies struct {
	Viewer      Viewer
	Accounts    AccountStore
	Reference   ReferenceUpdater
	Aliases     AliasRegistrar
	Formatter   *adapter.ResponseFormatter
	SendMessage func(room, message string) error
	SendImage   func(room string, image []byte) error
	SendError   func(room, message string) error
	Logger      *zap.Logger
}

func str(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}
