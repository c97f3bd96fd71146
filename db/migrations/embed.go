// Package migrations embeds the SQL migration files so deployments can run
// schema setup without shipping the db/ directory alongside the binary.
package migrations

import "embed"

// Files holds every .sql migration in this directory.
//
//go:embed *.sql
var Files embed.FS
