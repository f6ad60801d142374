package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/huelogic/internal/button"
	"github.com/nerrad567/huelogic/internal/infrastructure/database"
	"github.com/nerrad567/huelogic/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck // test cleanup
	})

	if err := db.Migrate(context.Background(), migrations.FS(), "."); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return NewSQLiteStore(db.DB)
}

func storedSnapshot(roomID, roomName string, takenAt time.Time) *RoomSnapshot {
	return &RoomSnapshot{
		RoomID:   roomID,
		RoomName: roomName,
		TakenAt:  takenAt,
		Devices: []DeviceSnapshot{{
			DeviceID: "dev-1",
			Name:     roomName + " Switch",
			Buttons:  map[int]button.ActionSpec{1: cycleSpec("s1", "s2")},
		}},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := storedSnapshot("room-1", "Study", time.Now().UTC())
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if snap.ID == "" {
		t.Fatal("Save should assign an id")
	}

	loaded, err := store.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.RoomName != "Study" || len(loaded.Devices) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
	spec := loaded.Devices[0].Buttons[1]
	if !spec.Equal(snap.Devices[0].Buttons[1]) {
		t.Errorf("programming did not round-trip: %+v", spec)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), "no-such-id")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_ListByRoomPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, name := range []string{"Study", "Study", "Kitchen"} {
		roomID := "room-study"
		if name == "Kitchen" {
			roomID = "room-kitchen"
		}
		snap := storedSnapshot(roomID, name, base.Add(time.Duration(i)*time.Hour))
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	records, err := store.ListByRoomPrefix(ctx, "stu")
	if err != nil {
		t.Fatalf("ListByRoomPrefix() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	// Newest first.
	if !records[0].TakenAt.After(records[1].TakenAt) {
		t.Errorf("records not ordered by recency: %v then %v",
			records[0].TakenAt, records[1].TakenAt)
	}
	if records[0].Devices != 1 {
		t.Errorf("Devices = %d, want 1", records[0].Devices)
	}

	all, err := store.ListByRoomPrefix(ctx, "")
	if err != nil {
		t.Fatalf("ListByRoomPrefix() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all records = %d, want 3", len(all))
	}
}

func TestStore_Latest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		snap := storedSnapshot("room-1", "Study", base.Add(time.Duration(i)*time.Hour))
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	latest, err := store.Latest(ctx, "room-1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if !latest.TakenAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("Latest TakenAt = %v, want %v", latest.TakenAt, base.Add(2*time.Hour))
	}

	if _, err := store.Latest(ctx, "room-none"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Latest() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		snap := storedSnapshot("room-1", "Study", base.Add(time.Duration(i)*time.Hour))
		if err := store.Save(ctx, snap); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		ids = append(ids, snap.ID)
	}

	pruned, err := store.Prune(ctx, "room-1", 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}

	// The two newest survive.
	for _, id := range ids[3:] {
		if _, err := store.Load(ctx, id); err != nil {
			t.Errorf("Load(%s) after prune: %v", id, err)
		}
	}
	for _, id := range ids[:3] {
		if _, err := store.Load(ctx, id); !errors.Is(err, ErrSnapshotNotFound) {
			t.Errorf("Load(%s) = %v, want ErrSnapshotNotFound", id, err)
		}
	}

	if n, err := store.Prune(ctx, "room-1", 0); err != nil || n != 0 {
		t.Errorf("Prune(keep=0) = %d, %v, want no-op", n, err)
	}
}
