// Package migrations embeds SQL migration files into the binary.
//
// This allows Hue Logic to run migrations without needing the SQL files
// present on the filesystem - they're compiled into the executable.
package migrations

import "embed"

//go:embed *.sql
var fsys embed.FS

// FS returns the embedded migration filesystem. Files are at the root,
// so pass "." as the directory to database.Migrate.
func FS() embed.FS {
	return fsys
}
