package alias

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kapu/enka-kakao-bot-go/internal/service/database"
	"go.uber.org/zap"
)

func newSQLiteRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewSQLiteService(filepath.Join(t.TempDir(), "alias.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db.GetDB(), zap.NewNop())
}

func TestRepositoryInsertListDelete(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "10000001", "Kate")
	if err != nil || !inserted {
		t.Fatalf("insert: %v %v", inserted, err)
	}

	inserted, err = repo.Insert(ctx, "10000002", "Kate")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("alias must be unique across characters")
	}

	entries, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].CharacterID != "10000001" || entries[0].Alias != "Kate" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be populated")
	}

	deleted, err := repo.Delete(ctx, "Kate")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	entries, err = repo.List(ctx)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %+v %v", entries, err)
	}
}
