package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type gormCommandRepository struct {
	db *gorm.DB
}

// NewCommandRepository returns a CommandRepository backed by db.
func NewCommandRepository(db *gorm.DB) CommandRepository {
	return &gormCommandRepository{db: db}
}

func (r *gormCommandRepository) Create(ctx context.Context, cmd *UPSCommand) error {
	if err := r.db.WithContext(ctx).Create(cmd).Error; err != nil {
		return fmt.Errorf("storage: commands: create: %w", err)
	}
	return nil
}

func (r *gormCommandRepository) List(ctx context.Context, upsName string, opts ListOptions) ([]UPSCommand, int64, error) {
	var rows []UPSCommand
	var total int64

	q := r.db.WithContext(ctx).Model(&UPSCommand{})
	if upsName != "" {
		q = q.Where("ups_name = ?", upsName)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("storage: commands: list count: %w", err)
	}

	q = r.db.WithContext(ctx)
	if upsName != "" {
		q = q.Where("ups_name = ?", upsName)
	}
	if err := q.
		Limit(opts.Limit).
		Offset(opts.Offset).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("storage: commands: list: %w", err)
	}
	return rows, total, nil
}
