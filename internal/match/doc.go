// Package match resolves user-supplied names against bridge resources.
//
// Queries rarely arrive as exact resource names: "living" should find
// the Living Room, "kitch" should find the Kitchen. Resolution runs in
// two stages:
//
//  1. Case-insensitive substring containment
//  2. Bounded edit-distance fallback for typos
//
// Resolution is deterministic. When several candidates rank equally the
// resolver refuses to guess and returns an AmbiguousMatchError listing
// the contenders, so the caller can ask the user to be more specific.
//
// Usage:
//
//	room, err := match.Resolve("living", candidates)
//	var amb *match.AmbiguousMatchError
//	if errors.As(err, &amb) {
//	    // present amb.Matches to the user
//	}
package match
