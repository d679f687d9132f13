package viewer

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/alias"
	"github.com/kapu/enka-kakao-bot-go/internal/service/cache"
	"github.com/kapu/enka-kakao-bot-go/internal/service/render"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

type staticReference struct{ data *domain.ReferenceData }

func (s staticReference) Current() *domain.ReferenceData { return s.data }

type memoryAliases struct{ entries []domain.AliasEntry }

func (m *memoryAliases) List(context.Context) ([]domain.AliasEntry, error) { return m.entries, nil }

func (m *memoryAliases) Insert(_ context.Context, id domain.CharacterID, name string) (bool, error) {
	m.entries = append(m.entries, domain.AliasEntry{CharacterID: id, Alias: name})
	return true, nil
}

type countingRenderer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRenderer) Render(_ context.Context, uid string, c *domain.CharacterReference) ([]byte, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("card:" + uid + ":" + string(c.ID)), nil
}

type fakeProfiles struct{ forced []bool }

func (f *fakeProfiles) GetOrRefresh(_ context.Context, uid string, force bool) (*domain.ProfileSnapshot, error) {
	f.forced = append(f.forced, force)
	return &domain.ProfileSnapshot{UID: uid, Nickname: "Traveler"}, nil
}

func newTestViewer(t *testing.T, renderer Renderer) (*Service, *alias.Service, *render.Cache) {
	t.Helper()
	ref := staticReference{data: domain.NewReferenceData([]*domain.CharacterReference{
		{ID: "10000001", SelectorKey: "PlayerBoy"},
		{ID: "10000002", SelectorKey: "Ayaka", Names: map[string][]string{
			"en": {"Kamisato Ayaka"},
			"ko": {"카미사토 아야카"},
		}},
	})}
	aliases := alias.NewService(&memoryAliases{}, ref, zap.NewNop())
	if err := aliases.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	cards := render.NewCache(cache.NewMemoryStore(), zap.NewNop())
	return NewService(aliases, renderer, cards, &fakeProfiles{}, 5*time.Minute, zap.NewNop()), aliases, cards
}

func TestShowCharacterRendersAndCaches(t *testing.T) {
	renderer := &countingRenderer{}
	svc, _, cards := newTestViewer(t, renderer)
	ctx := context.Background()
	notified := 0

	card, err := svc.ShowCharacter(ctx, "800000001", "아야카", func(*domain.CharacterReference) { notified++ })
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if card.Cached || card.Character.ID != "10000002" {
		t.Fatalf("unexpected card %+v", card)
	}

	stored, ok, err := cards.Get(ctx, "800000001", "10000002")
	if err != nil || !ok || string(stored) != "card:800000001:10000002" {
		t.Fatalf("expected artifact cached under (uid, 10000002), got %q %v %v", stored, ok, err)
	}

	again, err := svc.ShowCharacter(ctx, "800000001", "Ayaka", func(*domain.CharacterReference) { notified++ })
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if !again.Cached || renderer.calls.Load() != 1 {
		t.Fatalf("repeat request must be served from cache (calls=%d)", renderer.calls.Load())
	}
	if notified != 1 {
		t.Fatalf("onRender must run only for uncached renders, ran %d times", notified)
	}
}

func TestShowCharacterUnknownName(t *testing.T) {
	renderer := &countingRenderer{}
	svc, _, _ := newTestViewer(t, renderer)

	_, err := svc.ShowCharacter(context.Background(), "800000001", "Zhongli", nil)
	if !stderrors.Is(err, ErrUnknownCharacter) {
		t.Fatalf("expected unknown character, got %v", err)
	}
	if renderer.calls.Load() != 0 {
		t.Fatalf("unknown names must not reach the renderer")
	}
}

func TestShowCharacterDoesNotCacheFailures(t *testing.T) {
	renderer := &countingRenderer{err: errors.ErrCharacterNotInShowcase}
	svc, _, cards := newTestViewer(t, renderer)
	ctx := context.Background()

	_, err := svc.ShowCharacter(ctx, "800000001", "Ayaka", nil)
	if !stderrors.Is(err, errors.ErrCharacterNotInShowcase) {
		t.Fatalf("expected not-in-showcase, got %v", err)
	}
	if _, ok, _ := cards.Get(ctx, "800000001", "10000002"); ok {
		t.Fatalf("failed render must not be cached")
	}
}

func TestRegisteredAliasResolvesThroughViewer(t *testing.T) {
	renderer := &countingRenderer{}
	svc, aliases, _ := newTestViewer(t, renderer)
	ctx := context.Background()

	if err := aliases.Register(ctx, "10000001", "Kate"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := aliases.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	card, err := svc.ShowCharacter(ctx, "800000001", "Kate", nil)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if card.Character.ID != "10000001" {
		t.Fatalf("expected Kate -> 10000001, got %s", card.Character.ID)
	}
}

func TestRosterPassesRefreshFlag(t *testing.T) {
	profiles := &fakeProfiles{}
	svc := NewService(nil, &countingRenderer{}, nil, profiles, time.Minute, zap.NewNop())

	if _, err := svc.Roster(context.Background(), "800000001", true); err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(profiles.forced) != 1 || !profiles.forced[0] {
		t.Fatalf("expected forced refresh, got %v", profiles.forced)
	}
}
