package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// Render stages, reported in RenderError.Stage.
const (
	StageOpenPage        = "open_page"
	StageNavigate        = "navigate"
	StageSelectLocale    = "select_locale"
	StageLocateCharacter = "locate_character"
	StageSelectCharacter = "select_character"
	StageInjectText      = "inject_text"
	StageObserve         = "observe_response"
	StageTriggerRender   = "trigger_render"
	StageAwaitCapture    = "await_capture"
)

type SessionConfig struct {
	BaseURL           string
	Locale            string
	Watermark         string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	CaptureTimeout    time.Duration // 0 waits until ctx ends
}

// Session owns the one shared showcase page. Renders are serialized by a FIFO
// lock; the page is opened on first use and reused afterwards.
type Session struct {
	browser Browser
	cfg     SessionConfig
	lock    *Lock
	logger  *zap.Logger

	pageMu sync.Mutex
	page   Page
}

func NewSession(browser Browser, cfg SessionConfig, logger *zap.Logger) *Session {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.EnkaConfig.BaseURL
	}
	return &Session{
		browser: browser,
		cfg:     cfg,
		lock:    NewLock(),
		logger:  logger,
	}
}

// Render produces the showcase card PNG for character on uid's public profile.
// It returns errors.ErrCharacterNotInShowcase when the profile does not list
// the character, and *errors.RenderError for any automation failure.
func (s *Session) Render(ctx context.Context, uid string, character *domain.CharacterReference) ([]byte, error) {
	started := time.Now()

	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	waited := time.Since(started)
	id := string(character.ID)
	fail := func(stage string, cause error) error {
		s.logger.Warn("Render failed",
			zap.String("stage", stage),
			zap.String("uid", uid),
			zap.String("character_id", id),
			zap.Error(cause),
		)
		return errors.NewRenderError(stage, uid, id, cause)
	}

	page, err := s.ensurePage(ctx)
	if err != nil {
		return nil, fail(StageOpenPage, err)
	}

	target := fmt.Sprintf("%s/u/%s/", s.cfg.BaseURL, uid)
	if err := s.step(ctx, s.cfg.NavigationTimeout, func(ctx context.Context) error {
		return page.Navigate(ctx, target)
	}); err != nil {
		s.discardPage()
		return nil, fail(StageNavigate, err)
	}

	label := constants.LocaleLabels[s.cfg.Locale]
	if err := s.step(ctx, s.cfg.ActionTimeout, func(ctx context.Context) error {
		return page.SelectLocale(ctx, label)
	}); err != nil {
		return nil, fail(StageSelectLocale, err)
	}

	var (
		at    Point
		found bool
	)
	if err := s.step(ctx, s.cfg.ActionTimeout, func(ctx context.Context) error {
		var err error
		at, found, err = page.LocateCharacter(ctx, character.SelectorKey)
		return err
	}); err != nil {
		return nil, fail(StageLocateCharacter, err)
	}
	if !found {
		s.logger.Info("Character not in showcase",
			zap.String("uid", uid),
			zap.String("character_id", id),
		)
		return nil, fmt.Errorf("uid %s, character %s: %w", uid, id, errors.ErrCharacterNotInShowcase)
	}

	if err := s.step(ctx, s.cfg.ActionTimeout, func(ctx context.Context) error {
		return page.Click(ctx, at)
	}); err != nil {
		return nil, fail(StageSelectCharacter, err)
	}

	if err := s.step(ctx, s.cfg.ActionTimeout, func(ctx context.Context) error {
		return page.PrepareCard(ctx, s.cfg.Watermark)
	}); err != nil {
		return nil, fail(StageInjectText, err)
	}

	// Subscribe before clicking so the response cannot be missed.
	capture, err := page.ObserveResponse(ctx, constants.GeneratedImagePattern)
	if err != nil {
		return nil, fail(StageObserve, err)
	}
	defer capture.Close()

	if err := s.step(ctx, s.cfg.ActionTimeout, func(ctx context.Context) error {
		return page.TriggerRender(ctx)
	}); err != nil {
		return nil, fail(StageTriggerRender, err)
	}

	var image []byte
	if err := s.step(ctx, s.cfg.CaptureTimeout, func(ctx context.Context) error {
		var err error
		image, err = capture.Wait(ctx)
		return err
	}); err != nil {
		return nil, fail(StageAwaitCapture, err)
	}

	s.logger.Info("Render completed",
		zap.String("uid", uid),
		zap.String("character_id", id),
		zap.Int("bytes", len(image)),
		zap.Duration("lock_wait", waited),
		zap.Duration("elapsed", time.Since(started)),
	)
	return image, nil
}

func (s *Session) step(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (s *Session) ensurePage(ctx context.Context) (Page, error) {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if s.page != nil {
		return s.page, nil
	}
	page, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Showcase page opened")
	s.page = page
	return page, nil
}

// discardPage drops a page whose navigation failed so the next render opens
// a fresh one.
func (s *Session) discardPage() {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()

	if s.page == nil {
		return
	}
	if err := s.page.Close(); err != nil {
		s.logger.Warn("Failed to close showcase page", zap.Error(err))
	}
	s.page = nil
}

// Close releases the page and the browser.
func (s *Session) Close() error {
	s.discardPage()
	return s.browser.Close()
}
