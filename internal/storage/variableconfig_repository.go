package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const variableConfigID = 1

type gormVariableConfigRepository struct {
	db *gorm.DB
}

// NewVariableConfigRepository returns a VariableConfigRepository backed by db.
func NewVariableConfigRepository(db *gorm.DB) VariableConfigRepository {
	return &gormVariableConfigRepository{db: db}
}

// Get returns the single config row (id=1), creating it with struct
// defaults on first access.
func (r *gormVariableConfigRepository) Get(ctx context.Context) (*VariableConfig, error) {
	var row VariableConfig
	err := r.db.WithContext(ctx).First(&row, "id = ?", variableConfigID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = VariableConfig{
			ID:              variableConfigID,
			Currency:        "EUR",
			PricePerKWh:     0.25,
			CO2Factor:       0.4,
			PollingInterval: 1,
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("storage: variable config: create default: %w", err)
		}
		return &row, nil
	case err != nil:
		return nil, fmt.Errorf("storage: variable config: get: %w", err)
	}
	return &row, nil
}

func (r *gormVariableConfigRepository) Update(ctx context.Context, cfg *VariableConfig) error {
	cfg.ID = variableConfigID
	if err := r.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return fmt.Errorf("storage: variable config: update: %w", err)
	}
	return nil
}
