package command

import (
	"context"
	"strconv"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

// AliasCommand registers a user alias for a character. The target is a
// character id or any name that already resolves.
type AliasCommand struct {
	deps *Dependencies
}

func NewAliasCommand(deps *Dependencies) *AliasCommand {
	return &AliasCommand{deps: deps}
}

func (c *AliasCommand) Name() string {
	return "enka_alias"
}

func (c *AliasCommand) Description() string {
	return "캐릭터 별명을 등록합니다"
}

func (c *AliasCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	target := str(params, "target")
	name := str(params, "name")
	if target == "" || name == "" {
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatAliasUsage())
	}

	id, ok := c.targetID(target)
	if !ok {
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatUnknownCharacter(target))
	}

	if err := c.deps.Aliases.Register(ctx, id, name); err != nil {
		c.deps.Logger.Info("Alias registration rejected",
			zap.String("character_id", string(id)),
			zap.String("alias", name),
			zap.Error(err),
		)
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatAliasError(err, name))
	}

	character := c.deps.Reference.Current().Find(id)
	if character == nil {
		character = &domain.CharacterReference{ID: id}
	}
	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatAliasRegistered(character, name))
}

func (c *AliasCommand) targetID(target string) (domain.CharacterID, bool) {
	if _, err := strconv.ParseUint(target, 10, 64); err == nil {
		return domain.CharacterID(target), true
	}
	return c.deps.Aliases.Resolve(target)
}
