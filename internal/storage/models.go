// Package storage is the schema and persistence layer: GORM models for the
// static device row, the dynamic time-series table, events, notification
// channel configs, report schedules, and the command/variable audit tables.
// AppendDynamic is the only write path for samples; everything else is
// plain CRUD behind per-aggregate repository interfaces.
package storage

import (
	"time"

	"github.com/nutify/nutify/internal/secret"
)

// entity is embedded by every storage-managed table that uses an
// auto-incrementing integer primary key. Config and audit rows only ever
// need a stable integer id; nothing here moves between installations, so
// there is no call for globally-unique identifiers.
type entity struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// UPSStaticData is the single, process-lifetime-immutable device identity
// row. Populated once from the first upsc snapshot at startup; missing keys
// are left null. Protected from the drift detector.
type UPSStaticData struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	UPSName          string `gorm:"not null;uniqueIndex"`
	Model            string
	Serial           string
	Manufacturer     string
	Firmware         string
	BatteryType      string
	NominalInputVolt *float64
	NominalOutputVolt *float64
	NominalPower     *float64
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// UPSDynamicData is one append-only time-series row per poll tick. Declared
// fields cover the well-known NUT variables; anything else lands in Extra.
// Protected from the drift detector: its shape is managed directly by the
// storage engine, not by structural comparison.
type UPSDynamicData struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	UPSName       string    `gorm:"not null;index:idx_dynamic_ups_ts,priority:1"`
	TimestampUTC  time.Time `gorm:"not null;index:idx_dynamic_ups_ts,priority:2;uniqueIndex:idx_dynamic_ups_ts_unique"`

	BatteryCharge   *float64
	BatteryVoltage  *float64
	BatteryRuntime  *float64
	InputVoltage    *float64
	OutputVoltage   *float64
	UPSStatus       string
	UPSLoad         *float64
	UPSRealpower    *float64
	UPSRealpowerNom *float64
	UPSTemperature  *float64

	// Aggregates, filled only by the hourly/daily aggregation pass. Null on
	// a raw minute sample.
	UPSRealpowerHrs  *float64
	UPSRealpowerDays *float64

	// Extra carries any NUT key outside the declared set above, normalized
	// with "." replaced by "_".
	Extra JSONMap `gorm:"type:text"`
}

// UPSEvent is a discrete state transition: power loss, battery depletion,
// communication loss, USB disconnect, and the rest of the closed event
// taxonomy.
type UPSEvent struct {
	entity
	UPSName           string `gorm:"not null;index"`
	EventType         string `gorm:"not null;index"`
	TimestampUTCBegin time.Time `gorm:"not null;index"`
	TimestampUTCEnd   *time.Time
	Message           string `gorm:"type:text"`
	SourceIP          string
	Acknowledged      bool `gorm:"not null;default:false"`
}

// MailConfig is an SMTP transport record. Password is ciphertext; a
// decryption failure under the current process secret is a distinct error
// from "field is empty".
type MailConfig struct {
	entity
	Server          string `gorm:"not null"`
	Port            int    `gorm:"not null"`
	Username        string
	Password        secret.EncryptedField `gorm:"type:text"`
	FromAddress     string          `gorm:"not null"`
	DefaultRecipient string
	TLS             bool `gorm:"not null;default:false"`
	STARTTLS        bool `gorm:"not null;default:false"`
	Provider        string
	Enabled         bool `gorm:"not null;default:true"`
}

// sesProviders require an explicit From address rather than falling back
// to a default; dispatch fails with a clear message if missing.
var sesProviders = map[string]bool{"ses": true, "amazon_ses": true, "aws_ses": true}

// RequiresExplicitSender reports whether this config's provider demands an
// explicit FromAddress.
func (c MailConfig) RequiresExplicitSender() bool {
	return sesProviders[c.Provider]
}

// ResolveTLSMode applies the port-based TLS/STARTTLS default when the
// config leaves both flags unset: an explicit value wins, otherwise port
// 465 means implicit TLS and port 587 means STARTTLS.
func (c MailConfig) ResolveTLSMode() (tls, starttls bool) {
	if c.TLS || c.STARTTLS {
		return c.TLS, c.STARTTLS
	}
	switch c.Port {
	case 465:
		return true, false
	case 587:
		return false, true
	default:
		return false, false
	}
}

// NtfyConfig is the ntfy.sh-style transport record plus its own per-event
// enable matrix.
type NtfyConfig struct {
	entity
	Server   string `gorm:"not null"`
	Topic    string `gorm:"not null"`
	Token    secret.EncryptedField `gorm:"type:text"`
	Enabled  bool            `gorm:"not null;default:true"`
	EventMap JSONMap         `gorm:"type:text"` // event type -> enabled bool
}

// WebhookConfig is the webhook transport record plus its own per-event
// enable matrix and HMAC signing secret.
type WebhookConfig struct {
	entity
	URL      string          `gorm:"not null"`
	Secret   secret.EncryptedField `gorm:"type:text"`
	Enabled  bool            `gorm:"not null;default:true"`
	EventMap JSONMap         `gorm:"type:text"`
}

// NotificationSetting is the per-event email enable flag, pointing at the
// MailConfig to use for that event type.
type NotificationSetting struct {
	entity
	EventType    string `gorm:"not null;uniqueIndex"`
	EmailEnabled bool   `gorm:"not null;default:false"`
	MailConfigID *uint  `gorm:"index"`
}

// VariableConfig holds the global billing/reporting constants (currency,
// energy price, CO2 factor) and the configured poll interval. One row, id
// fixed at 1.
type VariableConfig struct {
	ID              uint      `gorm:"primaryKey"`
	Currency        string    `gorm:"not null;default:'EUR'"`
	PricePerKWh     float64   `gorm:"column:price_per_kwh;not null;default:0.25"`
	CO2Factor       float64   `gorm:"column:co2_factor;not null;default:0.4"`
	PollingInterval int       `gorm:"not null;default:1"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// UPSCommand is the audit record of one instant-command execution or
// variable write.
type UPSCommand struct {
	entity
	UPSName   string `gorm:"not null;index"`
	Command   string `gorm:"not null"`
	Success   bool   `gorm:"not null"`
	Output    string `gorm:"type:text"`
	IssuedBy  string
}

// UPSVariable mirrors the last-known value of a writable NUT variable, kept
// so a variable change can be diffed and displayed without a round-trip
// NUT query.
type UPSVariable struct {
	entity
	UPSName      string `gorm:"not null;index:idx_variable_ups_name,unique"`
	VariableName string `gorm:"not null;index:idx_variable_ups_name,unique"`
	Value        string `gorm:"not null"`
}

// ReportSchedule is a cron-driven report job registration.
type ReportSchedule struct {
	entity
	CronExpression string `gorm:"not null"`
	Period         string `gorm:"not null"` // "daily", "weekly", "monthly", "range"
	Sections       JSONMap `gorm:"type:text"` // ordered list of section tags
	MailConfigID   *uint
	Recipients     JSONMap `gorm:"type:text"` // {"addresses": []string}, used when MailConfigID is nil
	LastRunAt      *time.Time
	Enabled        bool `gorm:"not null;default:true"`

	// RangeFrom/RangeTo hold the explicit window for Period == "range",
	// ignored for the fixed periods.
	RangeFrom *time.Time
	RangeTo   *time.Time
}

// InitialSetup records the one-time setup wizard outcome: server display
// name and whatever else must survive a restart without re-asking.
type InitialSetup struct {
	entity
	ServerName string `gorm:"not null;default:'UPS Monitor'"`
	Completed  bool   `gorm:"not null;default:false"`
}

// LoginAuth is the single local operator credential record. Session
// handling lives outside this service; only the stored row is managed
// here.
type LoginAuth struct {
	entity
	Username     string          `gorm:"not null;uniqueIndex"`
	PasswordHash secret.EncryptedField `gorm:"type:text;not null"`
}
