package viewer

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

// ErrUnknownCharacter reports a name that matches no character.
var ErrUnknownCharacter = stderrors.New("unknown character")

type Resolver interface {
	Resolve(query string) (domain.CharacterID, bool)
	Reference() *domain.ReferenceData
}

type Renderer interface {
	Render(ctx context.Context, uid string, character *domain.CharacterReference) ([]byte, error)
}

type ArtifactCache interface {
	Get(ctx context.Context, uid string, id domain.CharacterID) ([]byte, bool, error)
	Put(ctx context.Context, uid string, id domain.CharacterID, artifact []byte, ttl time.Duration) error
}

type ProfileSource interface {
	GetOrRefresh(ctx context.Context, uid string, force bool) (*domain.ProfileSnapshot, error)
}

// Card is a rendered showcase card.
type Card struct {
	Character *domain.CharacterReference
	Image     []byte
	Cached    bool
}

// Service answers character card and roster requests.
type Service struct {
	resolver Resolver
	renderer Renderer
	cache    ArtifactCache
	profiles ProfileSource
	ttl      time.Duration
	logger   *zap.Logger
}

func NewService(resolver Resolver, renderer Renderer, cache ArtifactCache, profiles ProfileSource, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		resolver: resolver,
		renderer: renderer,
		cache:    cache,
		profiles: profiles,
		ttl:      ttl,
		logger:   logger,
	}
}

// ShowCharacter returns the card for the character named by query on uid's
// showcase, rendering it only when no cached card exists. onRender, when set,
// runs just before an uncached render starts.
func (s *Service) ShowCharacter(ctx context.Context, uid, query string, onRender func(*domain.CharacterReference)) (*Card, error) {
	id, ok := s.resolver.Resolve(query)
	if !ok {
		return nil, ErrUnknownCharacter
	}
	character := s.resolver.Reference().Find(id)
	if character == nil {
		return nil, ErrUnknownCharacter
	}

	cached, hit, err := s.cache.Get(ctx, uid, id)
	if err != nil {
		s.logger.Warn("Render cache read failed", zap.String("uid", uid), zap.String("character_id", string(id)), zap.Error(err))
	}
	if hit {
		return &Card{Character: character, Image: cached, Cached: true}, nil
	}

	if onRender != nil {
		onRender(character)
	}
	image, err := s.renderer.Render(ctx, uid, character)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, uid, id, image, s.ttl); err != nil {
		s.logger.Warn("Render cache write failed", zap.String("uid", uid), zap.String("character_id", string(id)), zap.Error(err))
	}
	return &Card{Character: character, Image: image}, nil
}

// Roster returns the profile snapshot for uid. It never touches the render session.
func (s *Service) Roster(ctx context.Context, uid string, refresh bool) (*domain.ProfileSnapshot, error) {
	return s.profiles.GetOrRefresh(ctx, uid, refresh)
}

// Reference exposes the reference data used for display names.
func (s *Service) Reference() *domain.ReferenceData {
	return s.resolver.Reference()
}
