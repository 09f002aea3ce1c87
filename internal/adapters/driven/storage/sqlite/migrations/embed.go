// Package migrations holds the numbered SQLite schema scripts.
package migrations

import "embed"

// FS holds NNN_name.up.sql and the matching .down.sql files.
//
//go:embed *.sql
var FS embed.FS
