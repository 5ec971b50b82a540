//go:build !purego_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// Build with -tags purego_sqlite to use the pure Go driver instead.
package store

import (
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	sqliteDriverName = "sqlite3"
	sqliteDriverType = "cgo"
)
