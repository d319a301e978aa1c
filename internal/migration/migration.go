package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&settingsdomain.Settings{},
		&customerdomain.Customer{},
		&ledgerdomain.Entry{},
		&catalogdomain.Device{},
		&catalogdomain.Game{},
		&catalogdomain.Snack{},
		&sessiondomain.Session{},
		&sessiondomain.SessionSnack{},
		&saga.StepRecord{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate builds the schema from the models. Used for sqlite and mysql,
// where the postgres migrations do not apply.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
