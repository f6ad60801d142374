package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx, testMigrationsFS, "testdata"); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Verify both tables were created in version order
	for _, table := range []string{"test_rooms", "test_switches"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s not created: %v", table, err)
		}
	}

	// Verify migrations were recorded
	applied, err := db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
	if applied[0] != "001" || applied[1] != "002" {
		t.Errorf("applied versions = %v, want [001 002]", applied)
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx, testMigrationsFS, "testdata"); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	applied, err = db.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("after re-run expected 2 applied migrations, got %d", len(applied))
	}
}

// TestMigrate_MissingDir verifies the error path for a bad directory.
func TestMigrate_MissingDir(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), testMigrationsFS, "nonexistent"); err == nil {
		t.Error("Migrate() expected error for missing directory, got nil")
	}
}

func TestLoadMigrations_Ordering(t *testing.T) {
	migrations, err := loadMigrations(testMigrationsFS, "testdata")
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}

	if migrations[0].Version != "001" {
		t.Errorf("first version = %q, want %q", migrations[0].Version, "001")
	}
	if migrations[0].Name != "rooms" {
		t.Errorf("first name = %q, want %q", migrations[0].Name, "rooms")
	}
	if migrations[1].Version != "002" {
		t.Errorf("second version = %q, want %q", migrations[1].Version, "002")
	}
}
