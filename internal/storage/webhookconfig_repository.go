package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormWebhookConfigRepository struct {
	db *gorm.DB
}

// NewWebhookConfigRepository returns a WebhookConfigRepository backed by db.
func NewWebhookConfigRepository(db *gorm.DB) WebhookConfigRepository {
	return &gormWebhookConfigRepository{db: db}
}

func (r *gormWebhookConfigRepository) Create(ctx context.Context, cfg *WebhookConfig) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("storage: webhook config: create: %w", err)
	}
	return nil
}

func (r *gormWebhookConfigRepository) Get(ctx context.Context, id uint) (*WebhookConfig, error) {
	var cfg WebhookConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: webhook config: get: %w", err)
	}
	return &cfg, nil
}

func (r *gormWebhookConfigRepository) Update(ctx context.Context, cfg *WebhookConfig) error {
	result := r.db.WithContext(ctx).Save(cfg)
	if result.Error != nil {
		return fmt.Errorf("storage: webhook config: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWebhookConfigRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&WebhookConfig{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("storage: webhook config: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormWebhookConfigRepository) List(ctx context.Context) ([]WebhookConfig, error) {
	var rows []WebhookConfig
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: webhook config: list: %w", err)
	}
	return rows, nil
}
