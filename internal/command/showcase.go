package command

import (
	"context"
	stderrors "errors"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/viewer"
	"go.uber.org/zap"
)

// ShowcaseCommand shows the sender's roster, or the card of one character.
type ShowcaseCommand struct {
	deps *Dependencies
}

func NewShowcaseCommand(deps *Dependencies) *ShowcaseCommand {
	return &ShowcaseCommand{deps: deps}
}

func (c *ShowcaseCommand) Name() string {
	return "enka"
}

func (c *ShowcaseCommand) Description() string {
	return "캐릭터 진열장을 조회합니다"
}

func (c *ShowcaseCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	binding, err := c.deps.Accounts.Get(ctx, cmdCtx.UserKey())
	if err != nil {
		c.deps.Logger.Error("Failed to load account binding", zap.String("sender", cmdCtx.UserKey()), zap.Error(err))
		return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatUnavailable())
	}
	if binding == nil {
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatBindFirst())
	}

	query := str(params, "query")
	refresh, _ := params["refresh"].(bool)

	if query == "" {
		return c.showRoster(ctx, cmdCtx, binding.UID, refresh)
	}

	if refresh {
		if _, err := c.deps.Viewer.Roster(ctx, binding.UID, true); err != nil {
			c.deps.Logger.Warn("Profile refresh failed", zap.String("uid", binding.UID), zap.Error(err))
		}
	}

	card, err := c.deps.Viewer.ShowCharacter(ctx, binding.UID, query, func(character *domain.CharacterReference) {
		if err := c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatRendering(character)); err != nil {
			c.deps.Logger.Warn("Failed to send progress message", zap.Error(err))
		}
	})
	if err != nil {
		if stderrors.Is(err, viewer.ErrUnknownCharacter) {
			return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatUnknownCharacter(query))
		}
		c.deps.Logger.Warn("Showcase card failed",
			zap.String("uid", binding.UID),
			zap.String("query", query),
			zap.Error(err),
		)
		return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatRenderError(err))
	}

	c.deps.Logger.Info("Showcase card sent",
		zap.String("uid", binding.UID),
		zap.String("character_id", string(card.Character.ID)),
		zap.Bool("cached", card.Cached),
	)
	return c.deps.SendImage(cmdCtx.Room, card.Image)
}

func (c *ShowcaseCommand) showRoster(ctx context.Context, cmdCtx *domain.CommandContext, uid string, refresh bool) error {
	snapshot, err := c.deps.Viewer.Roster(ctx, uid, refresh)
	if err != nil {
		c.deps.Logger.Warn("Roster lookup failed", zap.String("uid", uid), zap.Error(err))
		return c.deps.SendError(cmdCtx.Room, c.deps.Formatter.FormatProfileError(err))
	}
	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatRoster(snapshot, c.deps.Viewer.Reference()))
}
