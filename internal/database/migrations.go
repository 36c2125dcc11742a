package database

import (
	"fmt"

	"gorm.io/gorm"

	"underwriting/server/internal/models"
)

// MigrateSchema creates or updates the deal, actuals and disposition tables.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.DealAssumptions{},
		&models.MonthlyActual{},
		&models.DispositionAnalysis{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// RunMigrations migrates the schema of the opened database.
func (d *Database) RunMigrations() error {
	if err := MigrateSchema(d.db); err != nil {
		return err
	}
	d.logger.Info("Database schema is up to date")
	return nil
}
