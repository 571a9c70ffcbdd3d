package db

import "embed"

// MigrationFS embeds the SQL migrations for the Postgres key-value storage backend.
// Applied by cmd/migrate through the migrate runner.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
