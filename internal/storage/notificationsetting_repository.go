package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type gormNotificationSettingRepository struct {
	db *gorm.DB
}

// NewNotificationSettingRepository returns a NotificationSettingRepository
// backed by db.
func NewNotificationSettingRepository(db *gorm.DB) NotificationSettingRepository {
	return &gormNotificationSettingRepository{db: db}
}

func (r *gormNotificationSettingRepository) GetByEventType(ctx context.Context, eventType string) (*NotificationSetting, error) {
	var row NotificationSetting
	err := r.db.WithContext(ctx).First(&row, "event_type = ?", eventType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: notification setting: get: %w", err)
	}
	return &row, nil
}

// Upsert creates or updates the row keyed by EventType; the table holds
// one row per event type.
func (r *gormNotificationSettingRepository) Upsert(ctx context.Context, setting *NotificationSetting) error {
	var existing NotificationSetting
	err := r.db.WithContext(ctx).First(&existing, "event_type = ?", setting.EventType).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(setting).Error; err != nil {
			return fmt.Errorf("storage: notification setting: create: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("storage: notification setting: get: %w", err)
	}

	setting.ID = existing.ID
	if err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"email_enabled":  setting.EmailEnabled,
		"mail_config_id": setting.MailConfigID,
	}).Error; err != nil {
		return fmt.Errorf("storage: notification setting: update: %w", err)
	}
	return nil
}

func (r *gormNotificationSettingRepository) List(ctx context.Context) ([]NotificationSetting, error) {
	var rows []NotificationSetting
	if err := r.db.WithContext(ctx).Order("event_type ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: notification setting: list: %w", err)
	}
	return rows, nil
}

// ClearMailConfig nulls mail_config_id on every row referencing configID,
// so removing a mail config leaves no dangling reference.
func (r *gormNotificationSettingRepository) ClearMailConfig(ctx context.Context, configID uint) error {
	if err := r.db.WithContext(ctx).
		Model(&NotificationSetting{}).
		Where("mail_config_id = ?", configID).
		Update("mail_config_id", nil).Error; err != nil {
		return fmt.Errorf("storage: notification setting: clear mail config: %w", err)
	}
	return nil
}
