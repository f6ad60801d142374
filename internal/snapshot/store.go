package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence surface for snapshots. The SQLite
// implementation is the only production one; tests substitute fakes.
type Store interface {
	// Save persists a snapshot. An empty ID is assigned one.
	Save(ctx context.Context, snap *RoomSnapshot) error

	// ListByRoomPrefix returns snapshot metadata for rooms whose name
	// starts with prefix (case-insensitive), newest first. An empty
	// prefix lists everything.
	ListByRoomPrefix(ctx context.Context, prefix string) ([]Record, error)

	// Load retrieves a stored snapshot by id.
	// Returns ErrSnapshotNotFound if no such snapshot exists.
	Load(ctx context.Context, id string) (*RoomSnapshot, error)

	// Latest retrieves the most recent snapshot for a room id.
	// Returns ErrSnapshotNotFound if the room has none.
	Latest(ctx context.Context, roomID string) (*RoomSnapshot, error)

	// Prune deletes all but the keep newest snapshots for a room.
	Prune(ctx context.Context, roomID string, keep int) (int, error)
}

// Record is listing metadata for a stored snapshot, cheap to return
// without deserialising the blob.
type Record struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	RoomName string    `json:"room_name"`
	TakenAt  time.Time `json:"taken_at"`
	Devices  int       `json:"devices"`
}

// SQLiteStore implements Store over the snapshots table.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a SQLite-backed snapshot store. The schema
// must already be migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists a snapshot as a JSON blob.
func (s *SQLiteStore) Save(ctx context.Context, snap *RoomSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("serialising snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, room_id, room_name, taken_at, data)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		snap.ID, snap.RoomID, snap.RoomName,
		snap.TakenAt.UTC().Format(time.RFC3339Nano), blob)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// ListByRoomPrefix returns snapshot metadata, newest first.
func (s *SQLiteStore) ListByRoomPrefix(ctx context.Context, prefix string) ([]Record, error) {
	query := `
		SELECT id, room_id, room_name, taken_at, data
		FROM snapshots
		WHERE room_name LIKE ? || '%' COLLATE NOCASE
		ORDER BY taken_at DESC`

	rows, err := s.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return records, nil
}

// Load retrieves a stored snapshot by id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*RoomSnapshot, error) {
	query := `SELECT data FROM snapshots WHERE id = ?`
	return s.loadOne(ctx, query, id)
}

// Latest retrieves the most recent snapshot for a room.
func (s *SQLiteStore) Latest(ctx context.Context, roomID string) (*RoomSnapshot, error) {
	query := `
		SELECT data FROM snapshots
		WHERE room_id = ?
		ORDER BY taken_at DESC
		LIMIT 1`
	return s.loadOne(ctx, query, roomID)
}

// Prune deletes all but the keep newest snapshots for a room,
// returning how many were removed. keep <= 0 is a no-op.
func (s *SQLiteStore) Prune(ctx context.Context, roomID string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	query := `
		DELETE FROM snapshots
		WHERE room_id = ?
		AND id NOT IN (
			SELECT id FROM snapshots
			WHERE room_id = ?
			ORDER BY taken_at DESC
			LIMIT ?
		)`

	res, err := s.db.ExecContext(ctx, query, roomID, roomID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned snapshots: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) loadOne(ctx context.Context, query string, arg string) (*RoomSnapshot, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var snap RoomSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("deserialising snapshot: %w", err)
	}
	return &snap, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec     Record
		takenAt string
		blob    []byte
	)
	if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.RoomName, &takenAt, &blob); err != nil {
		return Record{}, fmt.Errorf("scanning snapshot row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, takenAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing snapshot timestamp: %w", err)
	}
	rec.TakenAt = ts

	// Device count comes from the blob; cheap enough at listing sizes.
	var snap RoomSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return Record{}, fmt.Errorf("deserialising snapshot: %w", err)
	}
	rec.Devices = len(snap.Devices)

	return rec, nil
}
