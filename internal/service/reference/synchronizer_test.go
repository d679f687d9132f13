package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"go.uber.org/zap"
)

const namesFixture = `{
	"en": {"1006042610": "Kamisato Ayaka", "3221566250": "Jean"},
	"ko": {"1006042610": "카미사토 아야카", "3221566250": "진"},
	"ja": {"1006042610": "神里綾華", "3221566250": "ジン"}
}`

const charactersFixture = `{
	"10000002": {"Element": "Ice", "NameTextMapHash": 1006042610, "SideIconName": "UI_AvatarIcon_Side_Ayaka", "QualityType": "QUALITY_ORANGE", "WeaponType": "WEAPON_SWORD_ONE_HAND"},
	"10000003": {"Element": "Wind", "NameTextMapHash": 3221566250, "SideIconName": "UI_AvatarIcon_Side_Qin", "QualityType": "QUALITY_ORANGE", "WeaponType": "WEAPON_SWORD_ONE_HAND"}
}`

type fixtureServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	fs.status.Store(http.StatusOK)
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if code := int(fs.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		switch r.URL.Path {
		case "/loc.json":
			_, _ = w.Write([]byte(namesFixture))
		case "/characters.json":
			_, _ = w.Write([]byte(charactersFixture))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func newTestSynchronizer(server *fixtureServer, dir string) *Synchronizer {
	return NewSynchronizer(Options{
		NamesURL:      server.URL + "/loc.json",
		CharactersURL: server.URL + "/characters.json",
		DataDir:       dir,
		Locales:       []string{"ko", "en", "ja"},
		UserAgent:     "test",
		HTTPClient:    server.Client(),
	}, zap.NewNop())
}

func TestLoadDownloadsAndPersistsWhenMissing(t *testing.T) {
	server := newFixtureServer(t)
	dir := filepath.Join(t.TempDir(), "enka")
	syncer := newTestSynchronizer(server, dir)

	if err := syncer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if server.hits.Load() != 2 {
		t.Fatalf("expected both documents fetched, got %d hits", server.hits.Load())
	}

	data := syncer.Current()
	ayaka := data.Find("10000002")
	if ayaka == nil {
		t.Fatalf("expected Ayaka in reference data")
	}
	if ayaka.SelectorKey != "Ayaka" || ayaka.DisplayName("ko") != "카미사토 아야카" {
		t.Fatalf("unexpected merge result %+v", ayaka)
	}

	for _, name := range []string{"loc.json", "characters.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s persisted: %v", name, err)
		}
	}
}

func TestLoadPrefersLocalDocuments(t *testing.T) {
	server := newFixtureServer(t)
	dir := t.TempDir()
	if err := newTestSynchronizer(server, dir).Load(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	server.hits.Store(0)

	syncer := newTestSynchronizer(server, dir)
	if err := syncer.Refresh(context.Background(), false); err != nil {
		t.Fatalf("load: %v", err)
	}
	if server.hits.Load() != 0 {
		t.Fatalf("expected no downloads, got %d", server.hits.Load())
	}
	if syncer.Current().Len() != 2 {
		t.Fatalf("expected 2 characters, got %d", syncer.Current().Len())
	}
}

func TestLoadRecoversFromCorruptLocalDocument(t *testing.T) {
	server := newFixtureServer(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "loc.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "characters.json"), []byte(charactersFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	syncer := newTestSynchronizer(server, dir)
	if err := syncer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if server.hits.Load() != 2 {
		t.Fatalf("expected download after parse failure, got %d hits", server.hits.Load())
	}
}

func TestForcedRefreshNotifiesSubscribers(t *testing.T) {
	server := newFixtureServer(t)
	syncer := newTestSynchronizer(server, t.TempDir())

	var notified atomic.Int32
	syncer.Subscribe(func(_ context.Context, data *domain.ReferenceData) {
		if data.Len() == 2 {
			notified.Add(1)
		}
	})

	ctx := context.Background()
	if err := syncer.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := syncer.Refresh(ctx, true); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if notified.Load() != 2 {
		t.Fatalf("expected 2 notifications, got %d", notified.Load())
	}
}

func TestRefreshFailureKeepsPreviousData(t *testing.T) {
	server := newFixtureServer(t)
	syncer := newTestSynchronizer(server, t.TempDir())
	ctx := context.Background()

	if err := syncer.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := syncer.Current()

	server.status.Store(http.StatusBadGateway)
	if err := syncer.Refresh(ctx, true); err == nil {
		t.Fatalf("expected refresh error")
	}
	if syncer.Current() != before {
		t.Fatalf("failed refresh must not replace reference data")
	}
}

func TestStartupFailsWithoutAnySource(t *testing.T) {
	server := newFixtureServer(t)
	server.status.Store(http.StatusInternalServerError)

	syncer := newTestSynchronizer(server, t.TempDir())
	if err := syncer.Load(context.Background()); err == nil {
		t.Fatalf("expected load error when nothing is available")
	}
}

func TestWatchReloadsEditedDocument(t *testing.T) {
	server := newFixtureServer(t)
	dir := t.TempDir()
	syncer := newTestSynchronizer(server, dir)
	if err := syncer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	reloaded := make(chan *domain.ReferenceData, 8)
	syncer.Subscribe(func(_ context.Context, data *domain.ReferenceData) {
		reloaded <- data
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Watch(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		<-done
	}()

	edited := `{"10000002": {"Element": "Ice", "NameTextMapHash": 1006042610, "SideIconName": "UI_AvatarIcon_Side_Ayaka"}}`
	path := filepath.Join(dir, "characters.json")
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case data := <-reloaded:
			if data.Len() != 1 {
				t.Fatalf("expected edited document with 1 character, got %d", data.Len())
			}
			return
		case <-ticker.C:
			if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatalf("watcher never reloaded the edited document")
		}
	}
}

func TestWatchKeepsDataOnParseFailure(t *testing.T) {
	server := newFixtureServer(t)
	dir := t.TempDir()
	syncer := newTestSynchronizer(server, dir)
	if err := syncer.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := syncer.Current()

	if err := os.WriteFile(filepath.Join(dir, "characters.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := syncer.ReloadLocal(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
	if syncer.Current() != before {
		t.Fatalf("parse failure must keep previous data")
	}
}
