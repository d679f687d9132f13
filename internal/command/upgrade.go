package command

import (
	"context"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

// UpgradeCommand downloads fresh character reference data.
type UpgradeCommand struct {
	deps *Dependencies
}

func NewUpgradeCommand(deps *Dependencies) *UpgradeCommand {
	return &UpgradeCommand{deps: deps}
}

func (c *UpgradeCommand) Name() string {
	return "enka_upgrade"
}

func (c *UpgradeCommand) Description() string {
	return "캐릭터 데이터를 갱신합니다"
}

func (c *UpgradeCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, _ map[string]any) error {
	if err := c.deps.Reference.Refresh(ctx, true); err != nil {
		c.deps.Logger.Error("Reference refresh failed", zap.Error(err))
		return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatUpgradeFailed())
	}
	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatUpgraded(c.deps.Reference.Current().Len()))
}
