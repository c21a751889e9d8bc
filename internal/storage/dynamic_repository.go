package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type gormDynamicRepository struct {
	db *gorm.DB
}

// NewDynamicRepository returns a DynamicRepository backed by db.
func NewDynamicRepository(db *gorm.DB) DynamicRepository {
	return &gormDynamicRepository{db: db}
}

// AppendDynamic inserts row, rejecting a timestamp_utc that is not later
// than the UPS's latest stored sample. A violation of the unique index on
// timestamp_utc is translated to ErrDuplicateTimestamp too, rather than
// leaking the driver's error shape.
func (r *gormDynamicRepository) AppendDynamic(ctx context.Context, row *UPSDynamicData) error {
	var latest UPSDynamicData
	err := r.db.WithContext(ctx).Where("ups_name = ?", row.UPSName).Order("timestamp_utc DESC").First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("storage: dynamic: append: load latest: %w", err)
	}
	if err == nil && !row.TimestampUTC.After(latest.TimestampUTC) {
		return ErrDuplicateTimestamp
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return ErrDuplicateTimestamp
		}
		return fmt.Errorf("storage: dynamic: append: %w", err)
	}
	return nil
}

func (r *gormDynamicRepository) Range(ctx context.Context, upsName string, from, to time.Time) ([]UPSDynamicData, error) {
	var rows []UPSDynamicData
	err := r.db.WithContext(ctx).
		Where("ups_name = ? AND timestamp_utc >= ? AND timestamp_utc < ?", upsName, from, to).
		Order("timestamp_utc ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage: dynamic: range: %w", err)
	}
	return rows, nil
}

func (r *gormDynamicRepository) Latest(ctx context.Context, upsName string) (*UPSDynamicData, error) {
	var row UPSDynamicData
	err := r.db.WithContext(ctx).
		Where("ups_name = ?", upsName).
		Order("timestamp_utc DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: dynamic: latest: %w", err)
	}
	return &row, nil
}

// SetHourlyAggregate writes ups_realpower_hrs on the row nearest
// bucketStart within [bucketStart, bucketStart+1h): the aggregation
// pass's write target for its own output, not a fresh sample. Real sample
// timestamps are never exactly on the hour boundary, so this matches by
// proximity rather than equality.
func (r *gormDynamicRepository) SetHourlyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return r.setAggregate(ctx, upsName, bucketStart, bucketStart.Add(time.Hour), "ups_realpower_hrs", wattHours)
}

// SetDailyAggregate writes ups_realpower_days on the row nearest
// bucketStart within [bucketStart, bucketStart+24h), by the same
// proximity match as SetHourlyAggregate.
func (r *gormDynamicRepository) SetDailyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error {
	return r.setAggregate(ctx, upsName, bucketStart, bucketStart.Add(24*time.Hour), "ups_realpower_days", wattHours)
}

// setAggregate finds the row whose timestamp_utc falls in
// [bucketStart, bucketEnd) and is closest to bucketStart, then updates
// column on that row by primary key. Every candidate timestamp is already
// >= bucketStart, so the closest one is simply the earliest in the range.
func (r *gormDynamicRepository) setAggregate(ctx context.Context, upsName string, bucketStart, bucketEnd time.Time, column string, wattHours float64) error {
	var target UPSDynamicData
	err := r.db.WithContext(ctx).
		Where("ups_name = ? AND timestamp_utc >= ? AND timestamp_utc < ?", upsName, bucketStart, bucketEnd).
		Order("timestamp_utc ASC").
		First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: dynamic: set aggregate: locate target row: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&UPSDynamicData{}).
		Where("id = ?", target.ID).
		Update(column, wattHours)
	if result.Error != nil {
		return fmt.Errorf("storage: dynamic: set aggregate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueConstraintViolation does a substring match against the driver
// error text; both the sqlite and postgres drivers used here return
// different concrete error types, and GORM does not normalize them.
func isUniqueConstraintViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
