package adapter

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/alias"
	"github.com/kapu/enka-kakao-bot-go/internal/service/enka"
	"github.com/kapu/enka-kakao-bot-go/internal/util"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
)

var kst = time.FixedZone("KST", 9*60*60)

// ResponseFormatter formats bot responses
type ResponseFormatter struct {
	prefix string
	locale string
}

// NewResponseFormatter creates a new ResponseFormatter. locale picks the
// character names shown in text replies.
func NewResponseFormatter(prefix, locale string) *ResponseFormatter {
	if strings.TrimSpace(prefix) == "" {
		prefix = "!"
	}
	if locale == "" {
		locale = "ko"
	}
	return &ResponseFormatter{prefix: prefix, locale: locale}
}

type rosterEntry struct {
	Name  string
	Level int
}

type rosterView struct {
	Prefix       string
	UID          string
	Nickname     string
	Level        int
	WorldLevel   int
	Achievements int
	Abyss        string
	Signature    string
	Characters   []rosterEntry
	Omitted      int
	FetchedAt    string
}

// FormatRoster lists the characters on a player's public showcase.
func (f *ResponseFormatter) FormatRoster(snapshot *domain.ProfileSnapshot, reference *domain.ReferenceData) string {
	if snapshot == nil {
		return f.FormatError("프로필 정보를 찾을 수 없습니다.")
	}

	view := rosterView{
		Prefix:       f.prefix,
		UID:          snapshot.UID,
		Nickname:     snapshot.Nickname,
		Level:        snapshot.Level,
		WorldLevel:   snapshot.WorldLevel,
		Achievements: snapshot.Achievements,
		Signature:    util.TruncateString(strings.TrimSpace(snapshot.Signature), constants.StringLimits.Signature),
		FetchedAt:    snapshot.FetchedAt.In(kst).Format("01/02 15:04"),
	}
	if snapshot.AbyssFloor > 0 {
		view.Abyss = fmt.Sprintf("%d-%d", snapshot.AbyssFloor, snapshot.AbyssChamber)
	}

	for i, owned := range snapshot.Characters {
		if i >= constants.StringLimits.RosterNames {
			view.Omitted = len(snapshot.Characters) - i
			break
		}
		name := string(owned.ID)
		if ref := reference.Find(owned.ID); ref != nil {
			name = ref.DisplayName(f.locale)
		}
		view.Characters = append(view.Characters, rosterEntry{Name: name, Level: owned.Level})
	}

	rendered, err := executeFormatterTemplate("roster.tmpl", view)
	if err != nil {
		return f.FormatError("프로필을 표시하지 못했습니다.")
	}
	return rendered
}

// FormatHelp formats help message
func (f *ResponseFormatter) FormatHelp() string {
	rendered, err := executeFormatterTemplate("help.tmpl", struct{ Prefix string }{f.prefix})
	if err != nil {
		return fmt.Sprintf("%s원 [캐릭터] / %senka.uid [UID]", f.prefix, f.prefix)
	}
	return rendered
}

func (f *ResponseFormatter) FormatBindFirst() string {
	return fmt.Sprintf("🔗 먼저 게임 UID를 연결해 주세요.\n예: %senka.uid 800000001", f.prefix)
}

func (f *ResponseFormatter) FormatBound(uid string) string {
	return fmt.Sprintf("✅ UID %s 연결되었습니다.", uid)
}

func (f *ResponseFormatter) FormatCurrentBinding(binding *domain.AccountBinding) string {
	if binding == nil {
		return f.FormatBindFirst()
	}
	return fmt.Sprintf("🔗 연결된 UID: %s", binding.UID)
}

func (f *ResponseFormatter) FormatInvalidUID(uid string) string {
	return f.FormatError(fmt.Sprintf("'%s'은(는) 올바른 UID가 아닙니다.", uid))
}

func (f *ResponseFormatter) FormatRendering(character *domain.CharacterReference) string {
	return fmt.Sprintf("⏳ %s 카드를 생성하고 있습니다. 잠시만 기다려 주세요.", character.DisplayName(f.locale))
}

func (f *ResponseFormatter) FormatUnknownCharacter(query string) string {
	return f.FormatError(fmt.Sprintf("'%s' 캐릭터를 찾을 수 없습니다.", query))
}

func (f *ResponseFormatter) FormatNotInShowcase() string {
	return f.FormatError("플레이어의 캐릭터 진열장에서 해당 캐릭터를 찾지 못했습니다.")
}

func (f *ResponseFormatter) FormatUnavailable() string {
	return f.FormatError("조회할 수 없습니다. 잠시 후 다시 시도해 주세요.")
}

// FormatProfileError maps a profile lookup failure to a user message.
func (f *ResponseFormatter) FormatProfileError(err error) string {
	switch {
	case stderrors.Is(err, enka.ErrPlayerNotFound), stderrors.Is(err, enka.ErrInvalidUID):
		return f.FormatError("존재하지 않는 UID입니다.")
	case stderrors.Is(err, enka.ErrMaintenance):
		return f.FormatError("게임 서버 점검 중입니다.")
	case stderrors.Is(err, enka.ErrRateLimited):
		return f.FormatError("요청이 너무 많습니다. 1분 후 다시 시도해 주세요.")
	default:
		return f.FormatUnavailable()
	}
}

// FormatRenderError maps a card failure to a user message.
func (f *ResponseFormatter) FormatRenderError(err error) string {
	if stderrors.Is(err, errors.ErrCharacterNotInShowcase) {
		return f.FormatNotInShowcase()
	}
	return f.FormatProfileError(err)
}

func (f *ResponseFormatter) FormatAliasRegistered(character *domain.CharacterReference, name string) string {
	return fmt.Sprintf("🏷️ '%s' → %s 별명이 등록되었습니다.", name, character.DisplayName(f.locale))
}

// FormatAliasError maps alias registration failures.
func (f *ResponseFormatter) FormatAliasError(err error, name string) string {
	switch {
	case stderrors.Is(err, alias.ErrDuplicateAlias):
		return f.FormatError(fmt.Sprintf("'%s'은(는) 이미 다른 캐릭터를 가리킵니다.", name))
	case stderrors.Is(err, alias.ErrUnknownCharacter):
		return f.FormatError("존재하지 않는 캐릭터 ID입니다.")
	case stderrors.Is(err, alias.ErrEmptyAlias):
		return f.FormatAliasUsage()
	default:
		return f.FormatError("별명을 등록하지 못했습니다.")
	}
}

func (f *ResponseFormatter) FormatAliasUsage() string {
	return fmt.Sprintf("사용법: %senka.alias [캐릭터 ID|이름] [별명]", f.prefix)
}

func (f *ResponseFormatter) FormatUpgraded(count int) string {
	return fmt.Sprintf("✅ 캐릭터 데이터를 갱신했습니다. (%d명)", count)
}

func (f *ResponseFormatter) FormatUpgradeFailed() string {
	return f.FormatError("캐릭터 데이터를 갱신하지 못했습니다.")
}

// FormatError formats error message
func (f *ResponseFormatter) FormatError(message string) string {
	return fmt.Sprintf("❌ %s", message)
}
