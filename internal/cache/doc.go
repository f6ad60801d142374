// Package cache maintains the local mirror of bridge state.
//
// The mirror is the read source for every inspection, programming and
// snapshot flow; the bridge itself is only consulted on reload and on
// writes. Writes are strictly write-through: the bridge call is issued
// first, and the mirror is patched from the submitted payload only
// after the bridge confirms success - never from a follow-up read.
// An ambiguous confirmation marks the entity stale, forcing a full
// reload before the mirror is trusted again.
//
// The mirror carries a reload timestamp and is considered stale after a
// configured age (24h by default); any read past that age triggers an
// implicit reload. On-disk persistence uses write-to-temp-then-rename
// so an interrupted save never leaves a corrupt mirror file.
//
// All public methods are safe for concurrent use, although the expected
// workload is a single operator.
package cache
