package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"underwriting/server/internal/models"
)

// GetDisposition returns the valuation snapshot of a deal.
func (d *Database) GetDisposition(ctx context.Context, dealID uuid.UUID) (*models.DispositionAnalysis, error) {
	var analysis models.DispositionAnalysis
	if err := d.db.WithContext(ctx).First(&analysis, "deal_id = ?", dealID).Error; err != nil {
		return nil, notFound("disposition analysis", err)
	}
	return &analysis, nil
}

// SaveDisposition stores the snapshot, replacing the deal's previous one.
func (d *Database) SaveDisposition(ctx context.Context, analysis *models.DispositionAnalysis) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.DispositionAnalysis
		err := tx.Select("id").Where("deal_id = ?", analysis.DealID).Limit(1).Find(&existing).Error
		if err != nil {
			return err
		}
		switch {
		case existing.ID != uuid.Nil:
			analysis.ID = existing.ID
		case analysis.ID == uuid.Nil:
			analysis.ID = uuid.New()
		}
		return tx.Save(analysis).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save disposition analysis: %w", err)
	}
	return nil
}
