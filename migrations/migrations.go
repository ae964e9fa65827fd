// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

// FS holds NNN_name.up.sql / NNN_name.down.sql pairs.
//
//go:embed *.sql
var FS embed.FS
