package storage

import (
	"context"
	"time"
)

// ListOptions contains common pagination options for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// StaticRepository manages the single UPSStaticData row.
type StaticRepository interface {
	// Upsert creates the static row if absent, otherwise merges non-empty
	// fields into the existing row. This row must exist before any dynamic
	// row is written.
	Upsert(ctx context.Context, row *UPSStaticData) error
	Get(ctx context.Context, upsName string) (*UPSStaticData, error)
}

// DynamicRepository is the append-only time-series table.
type DynamicRepository interface {
	// AppendDynamic is the sole write path for samples.
	AppendDynamic(ctx context.Context, row *UPSDynamicData) error
	Range(ctx context.Context, upsName string, from, to time.Time) ([]UPSDynamicData, error)
	Latest(ctx context.Context, upsName string) (*UPSDynamicData, error)
	// SetHourlyAggregate/SetDailyAggregate write the derived energy columns
	// computed by the aggregation pass onto the existing row whose
	// timestamp falls within the bucket and is nearest to bucketStart;
	// real sample timestamps never land exactly on the bucket boundary.
	SetHourlyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error
	SetDailyAggregate(ctx context.Context, upsName string, bucketStart time.Time, wattHours float64) error
}

// EventRepository manages UPSEvent rows, including the pairing/closing
// logic used by the event pipeline.
type EventRepository interface {
	Create(ctx context.Context, event *UPSEvent) error
	// CloseOpenPaired closes (sets timestamp_utc_end) any open event of
	// eventType's pair category for upsName, returning the closed rows.
	CloseOpenPaired(ctx context.Context, upsName string, pairTypes []string, at time.Time) ([]UPSEvent, error)
	// LastOpen returns the most recent open (end=null) event of eventType
	// for upsName, or ErrNotFound.
	LastOpen(ctx context.Context, upsName, eventType string) (*UPSEvent, error)
	// LastClosedWithin returns the most recent closed event of eventType
	// for upsName whose end falls within the last window, or ErrNotFound.
	LastClosedWithin(ctx context.Context, upsName, eventType string, window time.Duration, now time.Time) (*UPSEvent, error)
	List(ctx context.Context, upsName string, opts ListOptions) ([]UPSEvent, int64, error)
	Acknowledge(ctx context.Context, id uint) error
}

// MailConfigRepository manages ups_opt_mail_config rows.
type MailConfigRepository interface {
	Create(ctx context.Context, cfg *MailConfig) error
	Get(ctx context.Context, id uint) (*MailConfig, error)
	Update(ctx context.Context, cfg *MailConfig) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]MailConfig, error)
}

// NtfyConfigRepository manages ups_opt_ntfy rows.
type NtfyConfigRepository interface {
	Create(ctx context.Context, cfg *NtfyConfig) error
	Get(ctx context.Context, id uint) (*NtfyConfig, error)
	Update(ctx context.Context, cfg *NtfyConfig) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]NtfyConfig, error)
}

// WebhookConfigRepository manages ups_opt_webhook rows.
type WebhookConfigRepository interface {
	Create(ctx context.Context, cfg *WebhookConfig) error
	Get(ctx context.Context, id uint) (*WebhookConfig, error)
	Update(ctx context.Context, cfg *WebhookConfig) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]WebhookConfig, error)
}

// NotificationSettingRepository manages ups_opt_notification rows.
type NotificationSettingRepository interface {
	GetByEventType(ctx context.Context, eventType string) (*NotificationSetting, error)
	Upsert(ctx context.Context, setting *NotificationSetting) error
	List(ctx context.Context) ([]NotificationSetting, error)
	// ClearMailConfig nulls MailConfigID on every row referencing configID,
	// so removing a mail config leaves no dangling reference.
	ClearMailConfig(ctx context.Context, configID uint) error
}

// ReportScheduleRepository manages ups_report_schedules rows.
type ReportScheduleRepository interface {
	Create(ctx context.Context, sched *ReportSchedule) error
	Get(ctx context.Context, id uint) (*ReportSchedule, error)
	Update(ctx context.Context, sched *ReportSchedule) error
	Delete(ctx context.Context, id uint) error
	ListEnabled(ctx context.Context) ([]ReportSchedule, error)
	SetLastRun(ctx context.Context, id uint, at time.Time) error
	// DeleteByMailConfig removes schedules referencing configID, which
	// have nowhere left to deliver once their mail config is gone.
	DeleteByMailConfig(ctx context.Context, configID uint) error
}

// CommandRepository manages ups_commands rows.
type CommandRepository interface {
	Create(ctx context.Context, cmd *UPSCommand) error
	List(ctx context.Context, upsName string, opts ListOptions) ([]UPSCommand, int64, error)
}

// VariableConfigRepository manages the single ups_opt_variable_config row
// (currency, energy price, CO2 factor, poll interval).
type VariableConfigRepository interface {
	// Get returns the row, creating it with defaults on first access.
	Get(ctx context.Context) (*VariableConfig, error)
	Update(ctx context.Context, cfg *VariableConfig) error
}

// VariableRepository manages ups_variables rows.
type VariableRepository interface {
	Upsert(ctx context.Context, upsName, variableName, value string) error
	Get(ctx context.Context, upsName, variableName string) (*UPSVariable, error)
	ListByUPS(ctx context.Context, upsName string) ([]UPSVariable, error)
}

// InitialSetupRepository manages the single ups_initial_setup row.
type InitialSetupRepository interface {
	// Get returns the row, creating it with defaults ("UPS Monitor",
	// incomplete) on first access, so callers never see ErrNotFound.
	Get(ctx context.Context) (*InitialSetup, error)
	Update(ctx context.Context, row *InitialSetup) error
}
