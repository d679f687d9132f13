package reference

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Subscriber is notified after new reference data has been swapped in.
type Subscriber func(ctx context.Context, data *domain.ReferenceData)

type Options struct {
	NamesURL      string
	CharactersURL string
	DataDir       string
	Locales       []string
	UserAgent     string
	HTTPClient    *http.Client
}

// Synchronizer keeps the local copies of the Enka name and character
// documents and the merged reference data built from them.
type Synchronizer struct {
	opts    Options
	client  *http.Client
	logger  *zap.Logger
	current atomic.Pointer[domain.ReferenceData]

	refreshMu sync.Mutex
	digest    [sha256.Size]byte

	subsMu      sync.RWMutex
	subscribers []Subscriber
}

func NewSynchronizer(opts Options, logger *zap.Logger) *Synchronizer {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: constants.EnkaConfig.Timeout}
	}
	s := &Synchronizer{
		opts:   opts,
		client: client,
		logger: logger,
	}
	s.current.Store(domain.NewReferenceData(nil))
	return s
}

// Current returns the reference data in use. Never nil.
func (s *Synchronizer) Current() *domain.ReferenceData {
	return s.current.Load()
}

func (s *Synchronizer) Subscribe(fn Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Synchronizer) namesPath() string {
	return filepath.Join(s.opts.DataDir, constants.EnkaConfig.NamesFile)
}

func (s *Synchronizer) charactersPath() string {
	return filepath.Join(s.opts.DataDir, constants.EnkaConfig.CharactersFile)
}

// Load uses the local documents when both exist and parse, and downloads
// fresh copies otherwise.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	namesRaw, charsRaw, err := s.readLocal()
	if err == nil {
		if err = s.apply(ctx, namesRaw, charsRaw, "local"); err == nil {
			return nil
		}
	}
	s.logger.Info("Local reference data unusable, downloading", zap.Error(err))
	return s.download(ctx)
}

// Refresh downloads both documents when force is set. Without force it
// behaves like Load.
func (s *Synchronizer) Refresh(ctx context.Context, force bool) error {
	if !force {
		return s.Load(ctx)
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.download(ctx)
}

// ReloadLocal re-reads the persisted documents. On failure the current data is kept.
func (s *Synchronizer) ReloadLocal(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	namesRaw, charsRaw, err := s.readLocal()
	if err != nil {
		return err
	}
	return s.apply(ctx, namesRaw, charsRaw, "local")
}

func (s *Synchronizer) readLocal() ([]byte, []byte, error) {
	namesRaw, err := os.ReadFile(s.namesPath())
	if err != nil {
		return nil, nil, err
	}
	charsRaw, err := os.ReadFile(s.charactersPath())
	if err != nil {
		return nil, nil, err
	}
	return namesRaw, charsRaw, nil
}

func (s *Synchronizer) download(ctx context.Context) error {
	var namesRaw, charsRaw []byte

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		data, err := s.fetch(ctx, s.opts.NamesURL)
		namesRaw = data
		return err
	})
	p.Go(func(ctx context.Context) error {
		data, err := s.fetch(ctx, s.opts.CharactersURL)
		charsRaw = data
		return err
	})
	if err := p.Wait(); err != nil {
		return err
	}

	names, meta, err := parse(namesRaw, charsRaw)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.opts.DataDir, 0o755); err != nil {
		return errors.NewServiceError("failed to create data directory", "reference", "persist", err)
	}
	if err := writeFileAtomic(s.namesPath(), namesRaw); err != nil {
		return errors.NewServiceError("failed to persist names", "reference", "persist", err)
	}
	if err := writeFileAtomic(s.charactersPath(), charsRaw); err != nil {
		return errors.NewServiceError("failed to persist characters", "reference", "persist", err)
	}

	s.swap(ctx, names, meta, digestOf(namesRaw, charsRaw), "remote")
	return nil
}

func (s *Synchronizer) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewAPIError("failed to build request", 0, map[string]any{"url": url}).WithCause(err)
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewAPIError("reference download failed", 0, map[string]any{"url": url}).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError(fmt.Sprintf("reference download returned %d", resp.StatusCode), resp.StatusCode, map[string]any{"url": url})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAPIError("failed to read reference body", resp.StatusCode, map[string]any{"url": url}).WithCause(err)
	}
	return body, nil
}

func (s *Synchronizer) apply(ctx context.Context, namesRaw, charsRaw []byte, source string) error {
	digest := digestOf(namesRaw, charsRaw)
	if digest == s.digest && s.current.Load().Len() > 0 {
		return nil
	}

	names, meta, err := parse(namesRaw, charsRaw)
	if err != nil {
		return err
	}
	s.swap(ctx, names, meta, digest, source)
	return nil
}

func (s *Synchronizer) swap(ctx context.Context, names domain.NameDocument, meta domain.MetadataDocument, digest [sha256.Size]byte, source string) {
	data := domain.MergeReference(meta, names, s.opts.Locales, constants.ShowcaseConfig.SelectorIconPrefix)
	s.current.Store(data)
	s.digest = digest

	s.logger.Info("Reference data loaded",
		zap.String("source", source),
		zap.Int("characters", data.Len()),
		zap.Strings("locales", s.opts.Locales),
	)

	s.subsMu.RLock()
	subscribers := make([]Subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.subsMu.RUnlock()

	for _, fn := range subscribers {
		fn(ctx, data)
	}
}

func parse(namesRaw, charsRaw []byte) (domain.NameDocument, domain.MetadataDocument, error) {
	var names domain.NameDocument
	if err := json.Unmarshal(namesRaw, &names); err != nil {
		return nil, nil, errors.NewServiceError("failed to parse name document", "reference", "parse", err)
	}
	var meta domain.MetadataDocument
	if err := json.Unmarshal(charsRaw, &meta); err != nil {
		return nil, nil, errors.NewServiceError("failed to parse character document", "reference", "parse", err)
	}
	if len(meta) == 0 {
		return nil, nil, errors.NewServiceError("character document is empty", "reference", "parse", nil)
	}
	return names, meta, nil
}

func digestOf(parts ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// writeFileAtomic writes to a temp file in the same directory and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
