package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormStaticRepository struct {
	db *gorm.DB
}

// NewStaticRepository returns a StaticRepository backed by db.
func NewStaticRepository(db *gorm.DB) StaticRepository {
	return &gormStaticRepository{db: db}
}

// Upsert creates the static row for row.UPSName if absent; otherwise it
// merges any non-empty fields of row into the existing record, leaving
// fields NUT didn't report this time untouched.
func (r *gormStaticRepository) Upsert(ctx context.Context, row *UPSStaticData) error {
	var existing UPSStaticData
	err := r.db.WithContext(ctx).First(&existing, "ups_name = ?", row.UPSName).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return fmt.Errorf("storage: static: create: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("storage: static: get: %w", err)
	}

	row.ID = existing.ID
	if err := r.db.WithContext(ctx).Model(&existing).Updates(row).Error; err != nil {
		return fmt.Errorf("storage: static: update: %w", err)
	}
	return nil
}

func (r *gormStaticRepository) Get(ctx context.Context, upsName string) (*UPSStaticData, error) {
	var row UPSStaticData
	err := r.db.WithContext(ctx).First(&row, "ups_name = ?", upsName).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: static: get: %w", err)
	}
	return &row, nil
}
