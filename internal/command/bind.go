package command

import (
	"context"
	stderrors "errors"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// BindCommand links the sender to a game UID, or shows the current link.
type BindCommand struct {
	deps *Dependencies
}

func NewBindCommand(deps *Dependencies) *BindCommand {
	return &BindCommand{deps: deps}
}

func (c *BindCommand) Name() string {
	return "enka_uid"
}

func (c *BindCommand) Description() string {
	return "게임 UID를 연결합니다"
}

func (c *BindCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	uid := str(params, "uid")
	if uid == "" {
		binding, err := c.deps.Accounts.Get(ctx, cmdCtx.UserKey())
		if err != nil {
			c.deps.Logger.Error("Failed to load account binding", zap.Error(err))
			return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatUnavailable())
		}
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatCurrentBinding(binding))
	}

	bound, err := c.deps.Accounts.Bind(ctx, cmdCtx.UserKey(), uid)
	if err != nil {
		var validationErr *errors.ValidationError
		if stderrors.As(err, &validationErr) {
			return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatInvalidUID(uid))
		}
		c.deps.Logger.Error("Failed to bind account", zap.String("uid", uid), zap.Error(err))
		return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatUnavailable())
	}

	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatBound(bound))
}
