package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestCreateAtWritesSluggedFile(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

	path, err := createAt(dir, "Add Refund Notes!", at)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20261015083000_add_refund_notes.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- rollback add_refund_notes") {
		t.Fatalf("unexpected template:\n%s", body)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}

	if _, err := createAt(dir, "add refund notes", at); err == nil {
		t.Fatalf("expected duplicate file to be rejected")
	}
	if _, err := createAt(dir, "!!!", at); err == nil {
		t.Fatalf("expected empty slug to be rejected")
	}
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	up := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {"001_init.sql": {Data: []byte(up)}},
		"duplicate": {
			"20260101000000_a.sql": {Data: []byte(up)},
			"20260101000000_b.sql": {Data: []byte(up)},
		},
		"missing down": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")}},
	}
	for name, fsys := range cases {
		if err := ValidateFS(fsys); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := ValidateFS(fstest.MapFS{"README.md": {Data: []byte("x")}}); err != nil {
		t.Fatalf("non-sql files should be ignored: %v", err)
	}
}
