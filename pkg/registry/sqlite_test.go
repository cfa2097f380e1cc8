package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "styles.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_PutGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := &StyleRecord{
		ID:          "demo",
		UpstreamURL: "https://upstream.example/styles/basic.json",
		Provider:    "maptiler",
		TileTemplates: map[string]string{
			"default": "https://upstream.example/tiles/{z}/{x}/{y}.pbf",
		},
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.GetByID(ctx, "demo")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UpstreamURL != record.UpstreamURL || got.Provider != "maptiler" {
		t.Errorf("Unexpected record: %+v", got)
	}
	if got.TileTemplates["default"] != record.TileTemplates["default"] {
		t.Errorf("Tile templates not round-tripped: %+v", got.TileTemplates)
	}
}

func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("Expected NotFoundError, got %v", err)
	}
}

func TestSQLiteStore_Upsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	record := &StyleRecord{
		ID:          "demo",
		UpstreamURL: "https://upstream.example/v1.json",
		Provider:    "maptiler",
	}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	record.UpstreamURL = "https://upstream.example/v2.json"
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("Put (update) failed: %v", err)
	}

	got, err := store.GetByID(ctx, "demo")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.UpstreamURL != "https://upstream.example/v2.json" {
		t.Errorf("Expected updated URL, got %q", got.UpstreamURL)
	}
}

func TestRegistry_MergeFromStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, &StyleRecord{
		ID:          "db-style",
		UpstreamURL: "https://upstream.example/db.json",
		Provider:    "stadia",
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	r := New()
	if err := r.MergeFromStore(ctx, store); err != nil {
		t.Fatalf("MergeFromStore failed: %v", err)
	}

	desc, err := r.Resolve("db-style")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if desc.Provider != ProviderStadia {
		t.Errorf("Expected provider stadia, got %q", desc.Provider)
	}
}
