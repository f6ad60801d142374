package snapshot

import "errors"

var (
	// ErrSnapshotNotFound indicates no stored snapshot matches the
	// requested id or room.
	ErrSnapshotNotFound = errors.New("snapshot: not found")

	// ErrNoSwitches indicates the room contains no button-bearing
	// devices, so there is nothing to capture.
	ErrNoSwitches = errors.New("snapshot: room has no switches")
)
