package adapter

import (
	"regexp"
	"strings"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/iris"
	"github.com/kapu/enka-kakao-bot-go/internal/util"
)

var (
	controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

const maxQueryRunes = 40

// MessageAdapter converts KakaoTalk messages to bot commands
type MessageAdapter struct {
	prefix string
}

// NewMessageAdapter creates a new MessageAdapter
func NewMessageAdapter(prefix string) *MessageAdapter {
	return &MessageAdapter{prefix: prefix}
}

// ParsedCommand represents a parsed command
type ParsedCommand struct {
	Type       domain.CommandType
	Params     map[string]any
	RawMessage string
}

// ParseMessage parses a KakaoTalk message into a command
func (ma *MessageAdapter) ParseMessage(message *iris.Message) *ParsedCommand {
	if message == nil || message.Msg == "" {
		return ma.createUnknownCommand("")
	}

	text := strings.TrimSpace(message.Msg)

	if !strings.HasPrefix(text, ma.prefix) {
		return ma.createUnknownCommand(text)
	}

	commandText := strings.TrimSpace(text[len(ma.prefix):])
	parts := strings.Fields(commandText)
	if len(parts) == 0 {
		return ma.createUnknownCommand(text)
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	if ma.isHelpCommand(command) {
		return &ParsedCommand{
			Type:       domain.CommandHelp,
			Params:     make(map[string]any),
			RawMessage: text,
		}
	}

	// "enka.uid" style subcommands
	head, sub, _ := strings.Cut(command, ".")
	if !ma.isShowcaseCommand(head) {
		return ma.createUnknownCommand(text)
	}

	switch {
	case sub == "":
		return ma.parseShowcaseCommand(args, text)

	case util.Contains([]string{"uid", "바인드", "등록", "bind"}, sub):
		params := make(map[string]any)
		if len(args) > 0 {
			params["uid"] = args[0]
		}
		return &ParsedCommand{Type: domain.CommandBind, Params: params, RawMessage: text}

	case util.Contains([]string{"upgrade", "업데이트", "update"}, sub):
		return &ParsedCommand{Type: domain.CommandUpgrade, Params: make(map[string]any), RawMessage: text}

	case util.Contains([]string{"alias", "별명"}, sub):
		params := make(map[string]any)
		if len(args) > 0 {
			params["target"] = args[0]
		}
		if len(args) > 1 {
			params["name"] = ma.sanitizeQuery(strings.Join(args[1:], " "))
		}
		return &ParsedCommand{Type: domain.CommandAlias, Params: params, RawMessage: text}
	}

	return ma.createUnknownCommand(text)
}

func (ma *MessageAdapter) parseShowcaseCommand(args []string, rawMessage string) *ParsedCommand {
	params := map[string]any{"refresh": false}

	words := make([]string, 0, len(args))
	for _, arg := range args {
		if ma.isRefreshFlag(arg) {
			params["refresh"] = true
			continue
		}
		words = append(words, arg)
	}

	if query := ma.sanitizeQuery(strings.Join(words, " ")); query != "" {
		params["query"] = query
	}

	return &ParsedCommand{
		Type:       domain.CommandShowcase,
		Params:     params,
		RawMessage: rawMessage,
	}
}

// Command matchers

func (ma *MessageAdapter) isShowcaseCommand(cmd string) bool {
	return util.Contains([]string{"원", "enka", "엔카", "진열장"}, cmd)
}

func (ma *MessageAdapter) isHelpCommand(cmd string) bool {
	return util.Contains([]string{"도움말", "도움", "help", "명령어", "commands"}, cmd)
}

func (ma *MessageAdapter) isRefreshFlag(arg string) bool {
	return util.Contains([]string{"-r", "--refresh", "갱신"}, strings.ToLower(arg))
}

func (ma *MessageAdapter) createUnknownCommand(text string) *ParsedCommand {
	return &ParsedCommand{
		Type:       domain.CommandUnknown,
		Params:     make(map[string]any),
		RawMessage: text,
	}
}

func (ma *MessageAdapter) sanitizeQuery(input string) string {
	withoutControl := controlCharsPattern.ReplaceAllString(input, " ")
	normalized := strings.TrimSpace(whitespacePattern.ReplaceAllString(withoutControl, " "))
	if normalized == "" {
		return ""
	}
	runes := []rune(normalized)
	if len(runes) > maxQueryRunes {
		return string(runes[:maxQueryRunes])
	}
	return normalized
}
