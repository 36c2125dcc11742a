package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"underwriting/server/internal/models"
)

var actualPeriod = []clause.Column{{Name: "deal_id"}, {Name: "year"}, {Name: "month"}}

// monthIndex orders calendar months as a single integer.
func monthIndex(year, month int) int {
	return year*12 + month - 1
}

// UpsertActuals writes a batch of monthly records, replacing any existing record
// for the same deal and month. Intended to run inside a transaction.
func UpsertActuals(tx *gorm.DB, batch []*models.MonthlyActual) error {
	if len(batch) == 0 {
		return nil
	}
	for _, a := range batch {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.EnteredAt.IsZero() {
			a.EnteredAt = time.Now().UTC()
		}
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   actualPeriod,
		UpdateAll: true,
	}).Create(&batch).Error
}

// GetMonth returns one month of actuals.
func (d *Database) GetMonth(ctx context.Context, dealID uuid.UUID, year, month int) (*models.MonthlyActual, error) {
	var actual models.MonthlyActual
	err := d.db.WithContext(ctx).
		Where("deal_id = ? AND year = ? AND month = ?", dealID, year, month).
		First(&actual).Error
	if err != nil {
		return nil, notFound(fmt.Sprintf("actuals %d-%02d", year, month), err)
	}
	return &actual, nil
}

// GetYear returns the recorded months of year in calendar order.
func (d *Database) GetYear(ctx context.Context, dealID uuid.UUID, year int) ([]models.MonthlyActual, error) {
	var actuals []models.MonthlyActual
	err := d.db.WithContext(ctx).
		Where("deal_id = ? AND year = ?", dealID, year).
		Order("month").
		Find(&actuals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load actuals for %d: %w", year, err)
	}
	return actuals, nil
}

// GetTrailingTwelve returns the records of the twelve months ending with the month
// of asOf, oldest first.
func (d *Database) GetTrailingTwelve(ctx context.Context, dealID uuid.UUID, asOf time.Time) ([]models.MonthlyActual, error) {
	end := monthIndex(asOf.Year(), int(asOf.Month()))
	var actuals []models.MonthlyActual
	err := d.db.WithContext(ctx).
		Where("deal_id = ? AND year * 12 + month - 1 BETWEEN ? AND ?", dealID, end-11, end).
		Order("year").Order("month").
		Find(&actuals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trailing twelve months: %w", err)
	}
	return actuals, nil
}

// GetAllActuals returns every recorded month for a deal in calendar order.
func (d *Database) GetAllActuals(ctx context.Context, dealID uuid.UUID) ([]models.MonthlyActual, error) {
	var actuals []models.MonthlyActual
	err := d.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("year").Order("month").
		Find(&actuals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load actuals: %w", err)
	}
	return actuals, nil
}

// SaveMonth validates, recalculates and upserts one month, returning the stored record.
func (d *Database) SaveMonth(ctx context.Context, actual *models.MonthlyActual) (*models.MonthlyActual, error) {
	if err := actual.Validate(); err != nil {
		return nil, err
	}
	actual.Recalculate()

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return UpsertActuals(tx, []*models.MonthlyActual{actual})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save actuals: %w", err)
	}
	return d.GetMonth(ctx, actual.DealID, actual.Year, actual.Month)
}

// DeleteMonth removes one month of actuals.
func (d *Database) DeleteMonth(ctx context.Context, dealID uuid.UUID, year, month int) error {
	result := d.db.WithContext(ctx).
		Where("deal_id = ? AND year = ? AND month = ?", dealID, year, month).
		Delete(&models.MonthlyActual{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete actuals: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("actuals %d-%02d: %w", year, month, models.ErrDataUnavailable)
	}
	return nil
}
