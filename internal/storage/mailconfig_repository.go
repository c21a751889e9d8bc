package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormMailConfigRepository struct {
	db *gorm.DB
}

// NewMailConfigRepository returns a MailConfigRepository backed by db.
func NewMailConfigRepository(db *gorm.DB) MailConfigRepository {
	return &gormMailConfigRepository{db: db}
}

func (r *gormMailConfigRepository) Create(ctx context.Context, cfg *MailConfig) error {
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("storage: mail config: create: %w", err)
	}
	return nil
}

func (r *gormMailConfigRepository) Get(ctx context.Context, id uint) (*MailConfig, error) {
	var cfg MailConfig
	err := r.db.WithContext(ctx).First(&cfg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: mail config: get: %w", err)
	}
	return &cfg, nil
}

func (r *gormMailConfigRepository) Update(ctx context.Context, cfg *MailConfig) error {
	result := r.db.WithContext(ctx).Save(cfg)
	if result.Error != nil {
		return fmt.Errorf("storage: mail config: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormMailConfigRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&MailConfig{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("storage: mail config: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormMailConfigRepository) List(ctx context.Context) ([]MailConfig, error) {
	var rows []MailConfig
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: mail config: list: %w", err)
	}
	return rows, nil
}
