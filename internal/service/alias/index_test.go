package alias

import (
	"sync"
	"testing"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
)

func testReference() *domain.ReferenceData {
	return domain.NewReferenceData([]*domain.CharacterReference{
		{ID: "10000001", SelectorKey: "PlayerGirl"},
		{ID: "10000002", SelectorKey: "Ayaka", Names: map[string][]string{
			"en": {"Kamisato Ayaka"},
			"ko": {"카미사토 아야카"},
			"ja": {"神里綾華"},
		}},
		{ID: "10000003", SelectorKey: "Qin", Names: map[string][]string{
			"en": {"Jean"},
			"ko": {"진"},
		}},
		{ID: "10000015", SelectorKey: "Kaeya", Names: map[string][]string{
			"en": {"Kaeya"},
			"ko": {"케이아"},
		}},
	})
}

func TestIndexResolvesAnyLocaleCaseInsensitively(t *testing.T) {
	idx := NewIndex()
	idx.Rebuild(testReference(), nil)

	cases := map[string]domain.CharacterID{
		"kamisato ayaka": "10000002",
		"AYAKA":          "10000002",
		"아야카":            "10000002",
		"神里":             "10000002",
		"JEAN":           "10000003",
		"케이아":            "10000015",
	}
	for query, want := range cases {
		got, ok := idx.Resolve(query)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = %q, %v; want %q", query, got, ok, want)
		}
	}
}

func TestIndexFirstMatchWinsInInsertionOrder(t *testing.T) {
	idx := NewIndex()
	idx.Rebuild(testReference(), nil)

	// "ka" is inside both Kamisato Ayaka and Kaeya.
	got, ok := idx.Resolve("ka")
	if !ok || got != "10000002" {
		t.Fatalf("expected earlier row 10000002, got %q %v", got, ok)
	}
}

func TestIndexNoMatch(t *testing.T) {
	idx := NewIndex()
	idx.Rebuild(testReference(), nil)

	for _, query := range []string{"", "   ", "Zhongli"} {
		if id, ok := idx.Resolve(query); ok {
			t.Errorf("Resolve(%q) unexpectedly matched %q", query, id)
		}
	}
}

func TestIndexRebuildKeepsAliasesAndSkipsOrphans(t *testing.T) {
	idx := NewIndex()
	aliases := []domain.AliasEntry{
		{CharacterID: "10000001", Alias: "Kate"},
		{CharacterID: "99999999", Alias: "Ghost"},
	}

	orphaned := idx.Rebuild(testReference(), aliases)
	if len(orphaned) != 1 || orphaned[0].Alias != "Ghost" {
		t.Fatalf("expected Ghost to be orphaned, got %+v", orphaned)
	}

	// Rebuild is idempotent.
	idx.Rebuild(testReference(), aliases)

	if id, ok := idx.Resolve("Kate"); !ok || id != "10000001" {
		t.Fatalf("expected Kate -> 10000001, got %q %v", id, ok)
	}
	if _, ok := idx.Resolve("Ghost"); ok {
		t.Fatalf("orphaned alias must not resolve")
	}
	if idx.Size() != 4 {
		t.Fatalf("expected 4 rows, got %d", idx.Size())
	}
}

func TestIndexConcurrentReadersDuringRebuild(t *testing.T) {
	idx := NewIndex()
	ref := testReference()
	idx.Rebuild(ref, nil)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if id, ok := idx.Resolve("Jean"); !ok || id != "10000003" {
					t.Errorf("reader saw inconsistent index: %q %v", id, ok)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		idx.Rebuild(ref, []domain.AliasEntry{{CharacterID: "10000001", Alias: "Kate"}})
	}
	close(stop)
	wg.Wait()
}
