package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type gormEventRepository struct {
	db *gorm.DB
}

// NewEventRepository returns an EventRepository backed by db.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) Create(ctx context.Context, event *UPSEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("storage: events: create: %w", err)
	}
	return nil
}

// CloseOpenPaired sets timestamp_utc_end = at on every open row (end IS
// NULL) for upsName whose event_type is in pairTypes, then returns the
// closed rows. Used by the event pipeline's close-paired-opens step.
func (r *gormEventRepository) CloseOpenPaired(ctx context.Context, upsName string, pairTypes []string, at time.Time) ([]UPSEvent, error) {
	if len(pairTypes) == 0 {
		return nil, nil
	}

	var rows []UPSEvent
	if err := r.db.WithContext(ctx).
		Where("ups_name = ? AND event_type IN ? AND timestamp_utc_end IS NULL", upsName, pairTypes).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: events: find open paired: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var ids []uint
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := r.db.WithContext(ctx).
		Model(&UPSEvent{}).
		Where("id IN ?", ids).
		Update("timestamp_utc_end", at).Error; err != nil {
		return nil, fmt.Errorf("storage: events: close open paired: %w", err)
	}

	for i := range rows {
		t := at
		rows[i].TimestampUTCEnd = &t
	}
	return rows, nil
}

func (r *gormEventRepository) LastOpen(ctx context.Context, upsName, eventType string) (*UPSEvent, error) {
	var row UPSEvent
	err := r.db.WithContext(ctx).
		Where("ups_name = ? AND event_type = ? AND timestamp_utc_end IS NULL", upsName, eventType).
		Order("timestamp_utc_begin DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: events: last open: %w", err)
	}
	return &row, nil
}

func (r *gormEventRepository) LastClosedWithin(ctx context.Context, upsName, eventType string, window time.Duration, now time.Time) (*UPSEvent, error) {
	cutoff := now.Add(-window)
	var row UPSEvent
	err := r.db.WithContext(ctx).
		Where("ups_name = ? AND event_type = ? AND timestamp_utc_end IS NOT NULL AND timestamp_utc_end >= ?", upsName, eventType, cutoff).
		Order("timestamp_utc_end DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: events: last closed within window: %w", err)
	}
	return &row, nil
}

func (r *gormEventRepository) List(ctx context.Context, upsName string, opts ListOptions) ([]UPSEvent, int64, error) {
	var rows []UPSEvent
	var total int64

	q := r.db.WithContext(ctx).Model(&UPSEvent{})
	if upsName != "" {
		q = q.Where("ups_name = ?", upsName)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("storage: events: list count: %w", err)
	}

	q = r.db.WithContext(ctx)
	if upsName != "" {
		q = q.Where("ups_name = ?", upsName)
	}
	if err := q.
		Limit(opts.Limit).
		Offset(opts.Offset).
		Order("timestamp_utc_begin DESC").
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("storage: events: list: %w", err)
	}
	return rows, total, nil
}

func (r *gormEventRepository) Acknowledge(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&UPSEvent{}).
		Where("id = ?", id).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("storage: events: acknowledge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
