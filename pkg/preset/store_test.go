package preset_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/preset"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func stores(t *testing.T) map[string]preset.Store {
	t.Helper()
	db, err := preset.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "presets.db"),
		preset.WithLogger(testsupport.Logger()))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]preset.Store{
		"memory": preset.NewMemoryStore(),
		"sqlite": db,
	}
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	data := map[string]any{
		"Message": map[string]any{
			"Body": map[string]any{"Reason": "A02", "Note": []any{"a", "b"}},
		},
	}
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, "CHG.01", "basic", data); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Save(ctx, "CHG.01", "another", map[string]any{}); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := store.Save(ctx, "MOV.02", "other", data); err != nil {
				t.Fatalf("save: %v", err)
			}

			names, err := store.List(ctx, "CHG.01")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if diff := cmp.Diff([]string{"another", "basic"}, names); diff != "" {
				t.Fatalf("names mismatch (-want +got):\n%s", diff)
			}

			got, err := store.Load(ctx, "CHG.01", "basic")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if diff := cmp.Diff(data, got); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}

			if err := store.Rename(ctx, "CHG.01", "basic", "another"); !errors.Is(err, preset.ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if err := store.Rename(ctx, "CHG.01", "basic", "renamed"); err != nil {
				t.Fatalf("rename: %v", err)
			}
			if _, err := store.Load(ctx, "CHG.01", "basic"); !errors.Is(err, preset.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after rename, got %v", err)
			}
			if got, _ := store.Load(ctx, "CHG.01", "renamed"); !cmp.Equal(data, got) {
				t.Fatalf("renamed preset lost its data")
			}

			if err := store.Delete(ctx, "CHG.01", "renamed"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := store.Delete(ctx, "CHG.01", "renamed"); !errors.Is(err, preset.ErrNotFound) {
				t.Fatalf("expected ErrNotFound on second delete, got %v", err)
			}
			names, _ = store.List(ctx, "CHG.01")
			if diff := cmp.Diff([]string{"another"}, names); diff != "" {
				t.Fatalf("names after delete (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, "", "x", nil); !errors.Is(err, preset.ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			if _, err := store.Load(ctx, "CHG.01", " "); !errors.Is(err, preset.ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			if names, err := store.List(ctx, "EMPTY"); err != nil || len(names) != 0 {
				t.Fatalf("expected no presets, got %v %v", names, err)
			}
		})
	}
}

func TestMemoryStore_DoesNotAlias(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := preset.NewMemoryStore()
	data := map[string]any{"Message": map[string]any{"A": "1"}}
	if err := store.Save(ctx, "C", "p", data); err != nil {
		t.Fatalf("save: %v", err)
	}
	data["Message"].(map[string]any)["A"] = "2"
	got, _ := store.Load(ctx, "C", "p")
	if got["Message"].(map[string]any)["A"] != "1" {
		t.Fatalf("stored preset changed with caller data")
	}
}
