package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type gormReportScheduleRepository struct {
	db *gorm.DB
}

// NewReportScheduleRepository returns a ReportScheduleRepository backed by db.
func NewReportScheduleRepository(db *gorm.DB) ReportScheduleRepository {
	return &gormReportScheduleRepository{db: db}
}

func (r *gormReportScheduleRepository) Create(ctx context.Context, sched *ReportSchedule) error {
	if err := r.db.WithContext(ctx).Create(sched).Error; err != nil {
		return fmt.Errorf("storage: report schedule: create: %w", err)
	}
	return nil
}

func (r *gormReportScheduleRepository) Get(ctx context.Context, id uint) (*ReportSchedule, error) {
	var sched ReportSchedule
	err := r.db.WithContext(ctx).First(&sched, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: report schedule: get: %w", err)
	}
	return &sched, nil
}

func (r *gormReportScheduleRepository) Update(ctx context.Context, sched *ReportSchedule) error {
	result := r.db.WithContext(ctx).Save(sched)
	if result.Error != nil {
		return fmt.Errorf("storage: report schedule: update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormReportScheduleRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&ReportSchedule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("storage: report schedule: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormReportScheduleRepository) ListEnabled(ctx context.Context) ([]ReportSchedule, error) {
	var rows []ReportSchedule
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: report schedule: list enabled: %w", err)
	}
	return rows, nil
}

func (r *gormReportScheduleRepository) SetLastRun(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ReportSchedule{}).
		Where("id = ?", id).
		Update("last_run_at", at)
	if result.Error != nil {
		return fmt.Errorf("storage: report schedule: set last run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByMailConfig removes schedules referencing configID, which have
// nowhere left to deliver once their mail config is gone.
func (r *gormReportScheduleRepository) DeleteByMailConfig(ctx context.Context, configID uint) error {
	if err := r.db.WithContext(ctx).
		Where("mail_config_id = ?", configID).
		Delete(&ReportSchedule{}).Error; err != nil {
		return fmt.Errorf("storage: report schedule: delete by mail config: %w", err)
	}
	return nil
}
