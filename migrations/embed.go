// Package migrations embeds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate file naming.
//
//go:embed *.sql
var FS embed.FS
