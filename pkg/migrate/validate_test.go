package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "not-a-migration.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("bad filename accepted")
	}
}

func TestValidateDirRejectsMissingDownSection(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_test.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("missing down section accepted")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Billing Index!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Ext(path) != ".sql" {
		t.Fatalf("unexpected path %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration invalid: %v", err)
	}
}
