// Package migrations holds the bun migrations of the quiz schema. Each
// migration lives in its own file because bun derives the migration name
// from the registering file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
