package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"underwriting/server/internal/models"
)

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, models.ErrDataUnavailable)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// GetDeal returns the deal with the given ID.
func (d *Database) GetDeal(ctx context.Context, id uuid.UUID) (*models.DealAssumptions, error) {
	var deal models.DealAssumptions
	if err := d.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		return nil, notFound("deal "+id.String(), err)
	}
	return &deal, nil
}

// SaveDeal inserts or replaces deal, assigning an ID when it has none.
func (d *Database) SaveDeal(ctx context.Context, deal *models.DealAssumptions) error {
	if err := deal.Validate(); err != nil {
		return err
	}
	deal.PropertyType = deal.EffectivePropertyType()
	now := time.Now().UTC()
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now

	if err := d.db.WithContext(ctx).Save(deal).Error; err != nil {
		return fmt.Errorf("failed to save deal: %w", err)
	}
	return nil
}

// ListDeals returns every deal, newest first.
func (d *Database) ListDeals(ctx context.Context) ([]models.DealAssumptions, error) {
	var deals []models.DealAssumptions
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&deals).Error; err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	return deals, nil
}
