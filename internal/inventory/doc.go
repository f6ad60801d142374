// Package inventory assembles typed views of the cached bridge state.
//
// The cache deals in raw resource bags; this package derives the
// operator-facing shapes from them: switches with their decoded button
// programming and health, rooms and zones with member devices, scenes
// with the buttons that reference them. Views are built per request
// from cache reads, never stored.
package inventory
