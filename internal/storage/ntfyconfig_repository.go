package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormNtfyConfigRepository struct {
	db *gorm.DB
}

// NewNtfyConfigRepository returns an NtfyConfigRepository backed by db.
func NewNtfyConfigRepository(db *gorm.DB) NtfyConfigRepository {
	return &gormNtfyConfigRepository{db: db}
}

func (r *gormNtfyConfigRepository) Create(ctx context.Context, cfg *NtfyConfig) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("storage: ntfy config: create: %w", err)
	}
	return nil
}

func (r *gormNtfyConfigRepository) Get(ctx context.Context, id uint) (*NtfyConfig, error) {
	var cfg NtfyConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: ntfy config: get: %w", err)
	}
	return &cfg, nil
}

func (r *gormNtfyConfigRepository) Update(ctx context.Context, cfg *NtfyConfig) error {
	result := r.db.WithContext(ctx).Save(cfg)
	if result.Error != nil {
		return fmt.Errorf("storage: ntfy config: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormNtfyConfigRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&NtfyConfig{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("storage: ntfy config: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormNtfyConfigRepository) List(ctx context.Context) ([]NtfyConfig, error) {
	var rows []NtfyConfig
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: ntfy config: list: %w", err)
	}
	return rows, nil
}
