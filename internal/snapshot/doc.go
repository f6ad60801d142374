// Package snapshot captures, compares, stores, and restores a room's
// switch programming.
//
// A RoomSnapshot is built entirely from the cache mirror - capture
// never talks to the bridge, so callers wanting fresh data reload the
// cache first. Diff compares two snapshots on canonical decoded forms,
// which makes the comparison independent of the raw format each
// behaviour happened to be stored in. Restore re-fetches each live
// behaviour and merges the snapshot's programming onto it, so fields
// the bridge added since the snapshot was taken survive.
//
// Snapshots persist as JSON blobs in SQLite via SQLiteStore, keyed by
// room and ordered by capture time.
package snapshot
