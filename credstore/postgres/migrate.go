package postgres

import (
	"context"
	"database/sql"

	"github.com/MrEthical07/identity/credstore/postgres/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"
)

// Direction selects the migration to run.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

var (
	gooseUp     = goose.UpContext
	gooseDown   = goose.DownContext
	gooseStatus = goose.StatusContext
)

// Migrate applies the embedded schema migrations to the database at dsn.
// Down rolls back a single migration.
func Migrate(ctx context.Context, dsn string, dir Direction) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "open database").Wrap(err)
	}
	defer db.Close()

	return run(ctx, db, dir)
}

func run(ctx context.Context, db *sql.DB, dir Direction) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "set dialect").Wrap(err)
	}

	switch dir {
	case Up:
		if err := gooseUp(ctx, db, "."); err != nil {
			return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
		}
	case Down:
		if err := gooseDown(ctx, db, "."); err != nil {
			return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
		}
	case Status:
		if err := gooseStatus(ctx, db, "."); err != nil {
			return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
		}
	default:
		return oops.Code("INVALID_DIRECTION").Errorf("unknown migration direction %q", dir)
	}
	return nil
}
