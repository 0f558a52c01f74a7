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
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
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

// Models lists every table the service owns.
func Models() []any {
	models := append([]any{}, masterdomain.Models()...)
	models = append(models,
		&taxdomain.Tax{},
		&deductiondomain.Config{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	)
	models = append(models, quantitydomain.Models()...)
	models = append(models, ledgerdomain.Models()...)
	models = append(models, statementdomain.Models()...)
	return models
}

// AutoMigrate builds the schema from the models for sqlite and mysql setups.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
