package constants

import (
	"regexp"
	"time"
)

var RenderCacheConfig = struct {
	MinTTL     time.Duration
	MaxTTL     time.Duration
	DefaultTTL time.Duration
	KeyPrefix  string
}{
	MinTTL:     1 * time.Minute,   // enka.network 조회 제한 (1분)
	MaxTTL:     150 * time.Minute, // 9,000,000ms
	DefaultTTL: 5 * time.Minute,   // 캐릭터 진열장 갱신 주기
	KeyPrefix:  "enka:render:",
}

var ProfileCacheConfig = struct {
	KeyPrefix string
}{
	KeyPrefix: "enka:profile:",
}

var EnkaConfig = struct {
	BaseURL        string
	APIBaseURL     string
	NamesURL       string
	CharactersURL  string
	NamesFile      string
	CharactersFile string
	UserAgent      string
	Timeout        time.Duration
	RateLimitDelay time.Duration
}{
	BaseURL:        "https://enka.network",
	APIBaseURL:     "https://enka.network",
	NamesURL:       "https://raw.githubusercontent.com/EnkaNetwork/API-docs/master/store/loc.json",
	CharactersURL:  "https://raw.githubusercontent.com/EnkaNetwork/API-docs/master/store/characters.json",
	NamesFile:      "loc.json",
	CharactersFile: "characters.json",
	UserAgent:      "EnkaKakaoBot/1.0",
	Timeout:        15 * time.Second,
	RateLimitDelay: 1 * time.Minute,
}

var ShowcaseConfig = struct {
	Watermark          string
	NavigationTimeout  time.Duration
	ActionTimeout      time.Duration
	CaptureTimeout     time.Duration
	SettleDelay        time.Duration
	SelectorIconPrefix string
	RenderButton       string
	WindowWidth        int
	WindowHeight       int
}{
	Watermark:          "KakaoTalk & Enka Network",
	NavigationTimeout:  60 * time.Second,
	ActionTimeout:      15 * time.Second,
	CaptureTimeout:     90 * time.Second,
	SettleDelay:        300 * time.Millisecond,
	SelectorIconPrefix: "UI_AvatarIcon_Side_",
	RenderButton:       `button[data-icon="image"]`,
	WindowWidth:        1920,
	WindowHeight:       1080,
}

// GeneratedImagePattern matches the showcase's generated-card endpoint.
var GeneratedImagePattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// UIDPattern matches a Genshin Impact account UID.
var UIDPattern = regexp.MustCompile(`^[1256789][0-9]{3,9}$`)

// LocaleLabels maps a data locale to the label shown in the showcase language dropdown.
var LocaleLabels = map[string]string{
	"ko":    "한국어",
	"en":    "English",
	"ja":    "日本語",
	"zh-CN": "简体中文",
	"zh-TW": "繁體中文",
	"ru":    "Русский",
	"de":    "Deutsch",
	"fr":    "Français",
	"es":    "Español",
	"pt":    "Português",
	"th":    "ภาษาไทย",
	"vi":    "Tiếng Việt",
	"id":    "Bahasa Indonesia",
	"tr":    "Türkçe",
	"it":    "Italiano",
}

// CustomTextPlaceholders lists the placeholder of the card's custom text input per UI language.
var CustomTextPlaceholders = []string{
	"Custom text",
	"自定义文本",
	"사용자 지정 텍스트",
	"カスタムテキスト",
}

var WebSocketConfig = struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}{
	MaxReconnectAttempts: 5,
	ReconnectDelay:       5 * time.Second,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var WatcherConfig = struct {
	Debounce time.Duration
}{
	Debounce: 500 * time.Millisecond,
}

var StringLimits = struct {
	Signature   int
	RosterNames int
}{
	Signature:   60,
	RosterNames: 12,
}
