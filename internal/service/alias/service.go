package alias

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrEmptyAlias       = stderrors.New("alias is empty")
	ErrUnknownCharacter = stderrors.New("unknown character id")
	ErrDuplicateAlias   = stderrors.New("alias already resolves to a character")
)

// Store is the persistence the alias service needs.
type Store interface {
	List(ctx context.Context) ([]domain.AliasEntry, error)
	Insert(ctx context.Context, id domain.CharacterID, alias string) (bool, error)
}

// ReferenceSource exposes the currently loaded reference data.
type ReferenceSource interface {
	Current() *domain.ReferenceData
}

// Service owns the alias index and keeps it in step with the reference data and
// the alias store.
type Service struct {
	index     *Index
	store     Store
	reference ReferenceSource
	logger    *zap.Logger

	registerMu sync.Mutex
	rebuildMu  sync.Mutex
}

func NewService(store Store, reference ReferenceSource, logger *zap.Logger) *Service {
	return &Service{
		index:     NewIndex(),
		store:     store,
		reference: reference,
		logger:    logger,
	}
}

// Resolve maps a free-form name to a character id.
func (s *Service) Resolve(query string) (domain.CharacterID, bool) {
	return s.index.Resolve(query)
}

// Reference returns the reference data the index was last rebuilt from.
func (s *Service) Reference() *domain.ReferenceData {
	return s.reference.Current()
}

func (s *Service) Size() int {
	return s.index.Size()
}

// Reload rebuilds the index from the current reference data and every stored alias.
func (s *Service) Reload(ctx context.Context) error {
	return s.rebuild(ctx)
}

// OnReferenceUpdated rebuilds the index after a reference refresh. The index is
// built from the source's current data, which is at least as new as data.
func (s *Service) OnReferenceUpdated(ctx context.Context, _ *domain.ReferenceData) {
	if err := s.rebuild(ctx); err != nil {
		s.logger.Error("Failed to rebuild alias index", zap.Error(err))
	}
}

// rebuild reads the reference data under rebuildMu so the last rebuild to run
// always sees the newest data.
func (s *Service) rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	data := s.reference.Current()
	aliases, err := s.store.List(ctx)
	if err != nil {
		return errors.NewServiceError("failed to load aliases", "alias", "reload", err)
	}

	orphaned := s.index.Rebuild(data, aliases)
	for _, a := range orphaned {
		s.logger.Warn("Alias points at unknown character",
			zap.String("character_id", string(a.CharacterID)),
			zap.String("alias", a.Alias),
		)
	}

	s.logger.Info("Alias index rebuilt",
		zap.Int("characters", s.index.Size()),
		zap.Int("aliases", len(aliases)-len(orphaned)),
	)
	return nil
}

// Register adds a user alias for id. A name is rejected when it would resolve
// to another character or would take over a name that resolves correctly
// today, so every alias keeps resolving to its own id.
func (s *Service) Register(ctx context.Context, id domain.CharacterID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyAlias
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	data := s.reference.Current()
	if data.Find(id) == nil {
		return ErrUnknownCharacter
	}

	aliases, err := s.store.List(ctx)
	if err != nil {
		return errors.NewServiceError("failed to load aliases", "alias", "register", err)
	}
	candidate := domain.AliasEntry{CharacterID: id, Alias: name}
	if broken, shadowed := Shadowed(data, aliases, candidate); shadowed {
		s.logger.Debug("Alias rejected",
			zap.String("alias", name),
			zap.String("conflicts_with", broken),
		)
		return ErrDuplicateAlias
	}

	inserted, err := s.store.Insert(ctx, id, name)
	if err != nil {
		return errors.NewServiceError("failed to store alias", "alias", "register", err)
	}
	if !inserted {
		return ErrDuplicateAlias
	}

	s.logger.Info("Alias registered",
		zap.String("character_id", string(id)),
		zap.String("alias", name),
	)
	return s.rebuild(ctx)
}
