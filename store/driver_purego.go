//go:build purego_sqlite

package store

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	sqliteDriverName = "sqlite"
	sqliteDriverType = "purego"
)
