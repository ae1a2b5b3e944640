// Package migration applies ordered, recorded schema changes through GORM.
package migration

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/logger"
)

// Migration describes a single GORM-based schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// appliedMigration is a row of the schema_migrations table.
type appliedMigration struct {
	ID        string `gorm:"primaryKey;size:255"`
	AppliedAt time.Time
}

func (appliedMigration) TableName() string { return "schema_migrations" }

// Runner applies migrations tracked in a schema_migrations table.
type Runner struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations []Migration
}

// NewRunner creates a runner bound to the given database and logger.
func NewRunner(db *gorm.DB, log *logger.Logger) *Runner {
	return &Runner{db: db, log: log.WithComponent("migration")}
}

// Add registers migrations to be applied in order.
func (r *Runner) Add(migrations ...Migration) *Runner {
	r.migrations = append(r.migrations, migrations...)
	return r
}

// Run applies all pending migrations in order. It returns the number applied.
func (r *Runner) Run() (int, error) {
	if err := r.db.AutoMigrate(&appliedMigration{}); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "create migrations table")
	}

	applied := 0
	for _, m := range r.migrations {
		done, err := r.isApplied(m.ID)
		if err != nil {
			return applied, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "check migration status")
		}
		if done {
			r.log.Debug("migration already applied", logger.Fields("id", m.ID))
			continue
		}

		r.log.Info("applying migration", logger.Fields("id", m.ID, "description", m.Description))
		if err := r.db.Transaction(func(tx *gorm.DB) error {
			if m.Up != nil {
				if err := m.Up(tx); err != nil {
					return err
				}
			}
			return tx.Create(&appliedMigration{ID: m.ID, AppliedAt: time.Now().UTC()}).Error
		}); err != nil {
			return applied, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "apply migration "+m.ID)
		}
		applied++
	}
	return applied, nil
}

// Rollback reverts the most recently applied migration that has a Down step.
func (r *Runner) Rollback() (string, error) {
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		done, err := r.isApplied(m.ID)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "check migration status")
		}
		if !done {
			continue
		}
		if m.Down == nil {
			return "", apperrors.Newf(apperrors.ErrCodeInvalidInput, "migration %s has no down step", m.ID)
		}
		err = r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&appliedMigration{ID: m.ID}).Error
		})
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "roll back migration "+m.ID)
		}
		r.log.Info("migration rolled back", logger.Fields("id", m.ID))
		return m.ID, nil
	}
	return "", nil
}

func (r *Runner) isApplied(id string) (bool, error) {
	var count int64
	err := r.db.Model(&appliedMigration{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// CreateIndexIfNotExists creates an index only if the table does not have it.
func CreateIndexIfNotExists(tx *gorm.DB, table, index, columns string) error {
	if tx.Migrator().HasIndex(table, index) {
		return nil
	}
	return tx.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)", index, table, columns)).Error
}

// DropIndexIfExists drops an index if it exists.
func DropIndexIfExists(tx *gorm.DB, index string) error {
	return tx.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", index)).Error
}

// AddColumnIfNotExists adds a column to a table only if it is missing.
func AddColumnIfNotExists(tx *gorm.DB, table, column, dataType string) error {
	if tx.Migrator().HasColumn(table, column) {
		return nil
	}
	return tx.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, dataType)).Error
}
