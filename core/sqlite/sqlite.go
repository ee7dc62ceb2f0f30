// Package sqlite selects the SQLite driver behind the chant store. The
// default build registers the pure Go modernc.org/sqlite driver, so the
// binary cross-compiles without a C toolchain; building with
// CGO_ENABLED=1 and -tags cgo_sqlite swaps in mattn/go-sqlite3. The two
// register under different names, so open databases through Open rather
// than sql.Open.
package sqlite

import "database/sql"

// DriverName returns the registered name of the active driver.
func DriverName() string {
	return driverName
}

// DriverType reports which implementation is active: "purego" for
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
