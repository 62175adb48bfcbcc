package drift

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faucetdb/tibero/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("") // in-memory
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotAt(schema string, at time.Time, tables ...model.Table) Snapshot {
	return Snapshot{Schema: schema, TakenAt: at, Tables: tables}
}

func TestStoreSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id, err := s.Save(ctx, "default", "v1", snapshotAt("scott", at, emp()))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero ID after save")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Schema != "scott" {
		t.Errorf("got schema %q, want scott", got.Schema)
	}
	if !got.TakenAt.Equal(at) {
		t.Errorf("got taken_at %v, want %v", got.TakenAt, at)
	}
	if len(got.Tables) != 1 || got.Tables[0].Name != "emp" {
		t.Fatalf("got tables %+v", got.Tables)
	}
	if report := DiffTable(emp(), got.Tables[0]); report.HasDrift {
		t.Errorf("stored table drifted: %v", report.Items)
	}

	if _, err := s.Get(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLatestAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, schema := range []string{"scott", "scott", "hr", "scott"} {
		snap := snapshotAt(schema, base.Add(time.Duration(i)*time.Hour))
		if _, err := s.Save(ctx, "default", "", snap); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if _, err := s.Save(ctx, "other", "", snapshotAt("scott", base.Add(10*time.Hour))); err != nil {
		t.Fatalf("Save other: %v", err)
	}

	latest, err := s.Latest(ctx, "default", "scott")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if want := base.Add(3 * time.Hour); !latest.TakenAt.Equal(want) {
		t.Errorf("latest taken_at = %v, want %v", latest.TakenAt, want)
	}
	if latest.Tables == nil {
		t.Error("expected empty, non-nil tables")
	}

	if _, err := s.Latest(ctx, "default", "sys"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	entries, err := s.List(ctx, "default", "scott")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if !entries[0].TakenAt.After(entries[2].TakenAt) {
		t.Error("expected newest first")
	}

	all, err := s.List(ctx, "default", "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("got %d entries, want 4", len(all))
	}
}

func TestStoreDeleteAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var ids []int64
	for i := range 5 {
		id, err := s.Save(ctx, "default", "", snapshotAt("scott", base.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, id)
	}

	if err := s.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	n, err := s.Prune(ctx, "default", "scott", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}

	entries, err := s.List(ctx, "default", "scott")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != ids[4] || entries[1].ID != ids[3] {
		t.Errorf("unexpected entries after prune: %+v", entries)
	}
}
