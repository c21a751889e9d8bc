package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

const initialSetupID = 1

type gormInitialSetupRepository struct {
	db *gorm.DB
}

// NewInitialSetupRepository returns an InitialSetupRepository backed by db.
func NewInitialSetupRepository(db *gorm.DB) InitialSetupRepository {
	return &gormInitialSetupRepository{db: db}
}

// Get returns the single setup row (id=1), creating it with struct defaults
// on first access.
func (r *gormInitialSetupRepository) Get(ctx context.Context) (*InitialSetup, error) {
	var row InitialSetup
	err := r.db.WithContext(ctx).First(&row, "id = ?", initialSetupID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = InitialSetup{
			entity:     entity{ID: initialSetupID},
			ServerName: "UPS Monitor",
			Completed:  false,
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("storage: initial setup: create default: %w", err)
		}
		return &row, nil
	case err != nil:
		return nil, fmt.Errorf("storage: initial setup: get: %w", err)
	}
	return &row, nil
}

func (r *gormInitialSetupRepository) Update(ctx context.Context, row *InitialSetup) error {
	row.ID = initialSetupID
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("storage: initial setup: update: %w", err)
	}
	return nil
}
