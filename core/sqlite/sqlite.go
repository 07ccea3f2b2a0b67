// Package sqlite selects the SQLite driver at build time: the pure Go
// modernc.org/sqlite by default, or mattn/go-sqlite3 when built with
// CGO_ENABLED=1 and the cgo_sqlite tag.
//
// Use Open instead of sql.Open so callers never hard-code a driver name.
package sqlite

import (
	"database/sql"
	"fmt"
)

// DriverName returns the registered SQL driver name for the active
// implementation.
func DriverName() string {
	return driverName
}

// DriverType identifies the underlying implementation: "purego" for
// modernc.org/sqlite, "cgo" for mattn/go-sqlite3.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO implementation is active.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database with the active driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens a SQLite database in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(path + "?mode=ro")
}

// MustOpen opens a SQLite database and panics on error. Intended for tests
// and initialization paths where failure is unrecoverable.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: open %s: %v", dataSourceName, err))
	}
	return db
}

// Info describes the active driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns the active driver configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
