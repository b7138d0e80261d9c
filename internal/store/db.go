// Package store provides the Postgres-backed persistence layer: connection
// bootstrap, migrations, and one repository per entity in the data model.
package store

import (
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/models"
)

// DB wraps the gorm handle used by every repository in this package.
type DB struct {
	gorm *gorm.DB
}

// Connect opens a pooled Postgres connection and pings it once to fail
// fast on misconfiguration, following the teacher's connect/pool/ping
// sequence.
func Connect(databaseURL string, log *logging.Logger) (*DB, error) {
	gormDB, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to database")
	return &DB{gorm: gormDB}, nil
}

// AutoMigrate creates/updates every table this core owns. Used in
// development and in tests against a throwaway database; production
// deployments should prefer the versioned migrations under
// internal/store/migrations via RunMigrations.
func (d *DB) AutoMigrate() error {
	return d.gorm.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Snapshot{},
		&models.Diff{},
		&models.Insight{},
		&models.InvocationLock{},
		&models.ProcessedWebhookEvent{},
		&models.RateLimitCounter{},
		&models.CompetitorAuditEvent{},
	)
}

// RunMigrations applies the versioned SQL migrations under
// internal/store/migrations using golang-migrate. sourceURL is typically
// "file://internal/store/migrations".
func RunMigrations(databaseURL, sourceURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Gorm exposes the underlying handle for repositories in this package.
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
