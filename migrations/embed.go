// Package migrations embeds the history database schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/building-data/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
