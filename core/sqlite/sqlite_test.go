package sqlite

import (
	"path/filepath"
	"testing"
)

func TestDriverConfiguration(t *testing.T) {
	if DriverName() == "" {
		t.Fatal("driver name empty")
	}
	info := GetInfo()
	if info.DriverName != DriverName() || info.DriverType != DriverType() {
		t.Errorf("info mismatch: %+v", info)
	}
	switch info.DriverType {
	case "purego":
		if info.IsCGO {
			t.Error("purego driver reports CGO")
		}
	case "cgo":
		if !info.IsCGO {
			t.Error("cgo driver reports purego")
		}
	default:
		t.Errorf("unknown driver type %q", info.DriverType)
	}
}

func TestOpenCreateQuery(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (name) VALUES (?)`, "a"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var name string
	if err := db.QueryRow(`SELECT name FROM t WHERE id = 1`).Scan(&name); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name != "a" {
		t.Errorf("name = %q", name)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")
	db := MustOpen(path)
	if _, err := db.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	db.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()
	if _, err := ro.Exec(`INSERT INTO t (id) VALUES (1)`); err == nil {
		t.Error("write succeeded on read-only handle")
	}
}
