package store

import (
	"context"
	"path/filepath"
	"testing"

	"locbridge/pkg/db"
)

func TestStores(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	sqlite := NewSQLiteStore(d)
	defer sqlite.Close()

	stores := map[string]Store{
		"SQLite": sqlite,
		"Memory": NewMemoryStore(),
	}

	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			testState(t, st)
			testList(t, st)
		})
	}
}

func testState(t *testing.T, st Store) {
	ctx := context.Background()

	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	if _, ok := st.GetState(ctx, "missing"); ok {
		t.Error("expected missing key to be absent")
	}

	if err := st.SetState(ctx, "watch_interval", "5s"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if v, ok := st.GetState(ctx, "watch_interval"); !ok || v != "5s" {
		t.Errorf("GetState = %q, %v", v, ok)
	}

	if err := st.SetState(ctx, "watch_interval", "7s"); err != nil {
		t.Fatalf("SetState overwrite failed: %v", err)
	}
	if v, _ := st.GetState(ctx, "watch_interval"); v != "7s" {
		t.Errorf("expected overwrite, got %q", v)
	}

	if err := st.DeleteState(ctx, "watch_interval"); err != nil {
		t.Fatalf("DeleteState failed: %v", err)
	}
	if _, ok := st.GetState(ctx, "watch_interval"); ok {
		t.Error("expected key to be deleted")
	}
}

func testList(t *testing.T, st Store) {
	ctx := context.Background()
	for k, v := range map[string]string{"location_timeout": "3s", "location_interval": "1s", "other": "x"} {
		if err := st.SetState(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.ListState(ctx, "location_")
	if err != nil {
		t.Fatalf("ListState failed: %v", err)
	}
	if len(got) != 2 || got["location_timeout"] != "3s" || got["location_interval"] != "1s" {
		t.Errorf("unexpected listing %v", got)
	}
}
