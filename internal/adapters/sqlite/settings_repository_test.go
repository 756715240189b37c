package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/rostersync/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/migrations"
)

func newTestRepo(t *testing.T) *SettingsRepository {
	t.Helper()
	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "settings.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSettingsRepository(db)
}

func TestSettingsGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get(context.Background(), "device_id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettingsSetGetOverwrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "device_id", "MOB-A1B2C3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := repo.Get(ctx, "device_id")
	if err != nil || got != "MOB-A1B2C3" {
		t.Fatalf("expected stored value, got %q err=%v", got, err)
	}

	if err := repo.Set(ctx, "device_id", "MOB-X9Y8Z7"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = repo.Get(ctx, "device_id")
	if err != nil || got != "MOB-X9Y8Z7" {
		t.Fatalf("expected overwritten value, got %q err=%v", got, err)
	}
}

func TestSettingsDeleteAndClear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Set(ctx, "remote_url", "https://tables.example.org"); err != nil {
		t.Fatalf("set: %v", err)
	}
	deleted, err := repo.Delete(ctx, "remote_url")
	if err != nil || !deleted {
		t.Fatalf("expected delete to report success, got %v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, "remote_url")
	if err != nil || deleted {
		t.Fatalf("expected second delete to be a no-op, got %v err=%v", deleted, err)
	}

	if err := repo.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := repo.Get(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected cleared store, got %v", err)
	}
}
