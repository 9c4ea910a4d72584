package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the four owned schemas (§6: health_assessments,
// issues, metrics_snapshots, behaviour_profiles) up to the latest
// embedded migration, tracked in the goose_db_version table.
//
// It opens its own short-lived lib/pq connection rather than reusing
// the pgx pool Open returns: goose drives schema DDL through
// database/sql directly against the migrations table, and keeping
// that connection separate from the long-lived query pool means a
// migration run never contends with NewConnConfig's DescribeExec
// plans for application traffic.
func Migrate(connString string) error {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
