// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds the YYYYMMDD_HHMMSS_name.{up,down}.sql files at its root.
//
//go:embed *.sql
var FS embed.FS
