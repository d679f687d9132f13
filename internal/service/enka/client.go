package enka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidUID     = stderrors.New("enka rejected uid format")
	ErrPlayerNotFound = stderrors.New("player does not exist")
	ErrMaintenance    = stderrors.New("game servers under maintenance")
	ErrRateLimited    = stderrors.New("enka rate limit reached")
)

type Options struct {
	BaseURL     string
	UserAgent   string
	HTTPClient  *http.Client
	MaxAttempts int
	BaseDelay   time.Duration
	Cooldown    time.Duration
}

// Client calls the Enka profile API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxAttempts int
	baseDelay   time.Duration
	cooldown    time.Duration
	logger      *zap.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	c := &Client{
		httpClient:  opts.HTTPClient,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		cooldown:    opts.Cooldown,
		logger:      logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: constants.EnkaConfig.Timeout}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = constants.RetryConfig.MaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = constants.RetryConfig.BaseDelay
	}
	if c.cooldown <= 0 {
		c.cooldown = constants.EnkaConfig.RateLimitDelay
	}
	return c
}

// FetchProfile returns the public profile for uid.
func (c *Client) FetchProfile(ctx context.Context, uid string) (*domain.EnkaProfileResponse, error) {
	if remaining := c.cooldownRemaining(); remaining > 0 {
		return nil, errors.NewAPIError("rate limited", http.StatusTooManyRequests, map[string]any{
			"retry_after_ms": remaining.Milliseconds(),
		}).WithCause(ErrRateLimited)
	}

	reqURL := fmt.Sprintf("%s/api/uid/%s/?info", c.baseURL, uid)
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		body, status, err := c.do(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = errors.NewAPIError("profile request failed", 0, map[string]any{"uid": uid}).WithCause(err)
			if c.wait(ctx, attempt) {
				continue
			}
			break
		}

		switch {
		case status == http.StatusOK:
			var resp domain.EnkaProfileResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, errors.NewAPIError("invalid profile body", status, map[string]any{"uid": uid}).WithCause(err)
			}
			return &resp, nil

		case status == http.StatusBadRequest:
			return nil, errors.NewAPIError("invalid uid", status, map[string]any{"uid": uid}).WithCause(ErrInvalidUID)

		case status == http.StatusNotFound:
			return nil, errors.NewAPIError("player not found", status, map[string]any{"uid": uid}).WithCause(ErrPlayerNotFound)

		case status == http.StatusFailedDependency:
			return nil, errors.NewAPIError("game maintenance", status, map[string]any{"uid": uid}).WithCause(ErrMaintenance)

		case status == http.StatusTooManyRequests:
			c.startCooldown()
			c.logger.Warn("Enka rate limited", zap.String("uid", uid), zap.Duration("cooldown", c.cooldown))
			return nil, errors.NewAPIError("rate limited", status, map[string]any{"uid": uid}).WithCause(ErrRateLimited)

		case status >= 500:
			c.logger.Warn("Enka server error",
				zap.Int("status", status),
				zap.Int("attempt", attempt+1),
			)
			lastErr = errors.NewAPIError(fmt.Sprintf("Server error: %d", status), status, map[string]any{"uid": uid})
			if c.wait(ctx, attempt) {
				continue
			}

		default:
			return nil, errors.NewAPIError(fmt.Sprintf("Client error: %d", status), status, map[string]any{
				"uid":  uid,
				"body": string(body),
			})
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("enka request failed")
}

func (c *Client) do(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// wait sleeps before the next attempt. Returns false when no attempt is left
// or ctx ended.
func (c *Client) wait(ctx context.Context, attempt int) bool {
	if attempt >= c.maxAttempts-1 {
		return false
	}
	delay := c.computeDelay(attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) computeDelay(attempt int) time.Duration {
	backoff := float64(c.baseDelay) * math.Pow(2, float64(attempt))
	jitter := rand.Int63n(int64(c.baseDelay)/2 + 1)
	return time.Duration(backoff) + time.Duration(jitter)
}

func (c *Client) startCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldownUntil = time.Now().Add(c.cooldown)
}

func (c *Client) cooldownRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Until(c.cooldownUntil)
}
