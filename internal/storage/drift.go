package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nutify/nutify/internal/secret"
)

// protectedTables are managed directly by EnsureSchema (AutoMigrate against
// the inferred NUT dictionary) and must never be dropped by the drift
// detector, even on a structural mismatch.
var protectedTables = map[string]bool{
	"ups_static_data":  true,
	"ups_dynamic_data": true,
}

// driftTarget pairs a table name with the GORM model that declares its
// expected shape.
type driftTarget struct {
	table string
	model any
}

// managedTables lists every non-protected table the drift detector
// reconciles at startup.
var managedTables = []driftTarget{
	{"ups_events", &UPSEvent{}},
	{"ups_opt_mail_config", &MailConfig{}},
	{"ups_opt_ntfy", &NtfyConfig{}},
	{"ups_opt_webhook", &WebhookConfig{}},
	{"ups_opt_notification", &NotificationSetting{}},
	{"ups_opt_variable_config", &VariableConfig{}},
	{"ups_commands", &UPSCommand{}},
	{"ups_variables", &UPSVariable{}},
	{"ups_report_schedules", &ReportSchedule{}},
	{"ups_initial_setup", &InitialSetup{}},
	{"ups_login_auth", &LoginAuth{}},
}

// DriftDetector compares the live database schema against the declared GORM
// models at startup and recreates any table whose shape has drifted, or
// whose encrypted fields no longer authenticate under the current process
// secret.
type DriftDetector struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewDriftDetector returns a DriftDetector bound to db.
func NewDriftDetector(db *gorm.DB, log *zap.Logger) *DriftDetector {
	return &DriftDetector{db: db, log: log.Named("drift")}
}

// Run reconciles every managed table. It never touches ups_static_data or
// ups_dynamic_data. Errors reconciling one table are logged and do not
// abort reconciliation of the rest.
func (d *DriftDetector) Run(ctx context.Context) error {
	for _, target := range managedTables {
		if protectedTables[target.table] {
			continue
		}
		if err := d.reconcile(ctx, target); err != nil {
			d.log.Error("failed to reconcile table",
				zap.String("table", target.table), zap.Error(err))
		}
	}
	return nil
}

func (d *DriftDetector) reconcile(ctx context.Context, target driftTarget) error {
	migrator := d.db.Migrator()

	if !migrator.HasTable(target.table) {
		return d.createTable(ctx, target)
	}

	drifted, err := d.columnsDrifted(target)
	if err != nil {
		return fmt.Errorf("drift: compare columns for %s: %w", target.table, err)
	}

	if !drifted {
		drifted = d.encryptedFieldsUnreadable(ctx, target)
	}

	if !drifted {
		return nil
	}

	d.log.Warn("table drift detected, recreating", zap.String("table", target.table))
	return d.dropAndRecreate(ctx, target)
}

func (d *DriftDetector) createTable(ctx context.Context, target driftTarget) error {
	if err := d.db.WithContext(ctx).AutoMigrate(target.model); err != nil {
		return fmt.Errorf("drift: create %s: %w", target.table, err)
	}
	return nil
}

// columnsDrifted compares the live column set of target.table against the
// column set declared by target.model. Any mismatch in either direction
// (a declared column missing live, or a live column no longer declared)
// counts as drift.
func (d *DriftDetector) columnsDrifted(target driftTarget) (bool, error) {
	declared, err := declaredColumns(d.db, target.model)
	if err != nil {
		return false, err
	}

	live, err := liveColumns(d.db, target.table)
	if err != nil {
		return false, err
	}

	if len(declared) != len(live) {
		return true, nil
	}
	for col := range declared {
		if !live[col] {
			return true, nil
		}
	}
	return false, nil
}

// declaredColumns returns the set of column names GORM would generate for
// model, without touching the database.
func declaredColumns(db *gorm.DB, model any) (map[string]bool, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	cols := make(map[string]bool, len(stmt.Schema.Fields))
	for _, f := range stmt.Schema.Fields {
		if f.DBName != "" {
			cols[f.DBName] = true
		}
	}
	return cols, nil
}

// liveColumns returns the set of column names actually present on table.
func liveColumns(db *gorm.DB, table string) (map[string]bool, error) {
	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	cols := make(map[string]bool, len(types))
	for _, t := range types {
		cols[t.Name()] = true
	}
	return cols, nil
}

// encryptedFieldsUnreadable reads back every row of target.table and reports
// whether any previously-non-null encrypted column now fails to
// authenticate under the current process secret, a KeyMismatch observed
// on a live read, which forces a drop-and-recreate of the table.
func (d *DriftDetector) encryptedFieldsUnreadable(ctx context.Context, target driftTarget) bool {
	switch target.table {
	case "ups_opt_mail_config":
		var rows []MailConfig
		return errors.Is(d.db.WithContext(ctx).Find(&rows).Error, secret.ErrKeyMismatch)
	case "ups_opt_ntfy":
		var rows []NtfyConfig
		return errors.Is(d.db.WithContext(ctx).Find(&rows).Error, secret.ErrKeyMismatch)
	case "ups_opt_webhook":
		var rows []WebhookConfig
		return errors.Is(d.db.WithContext(ctx).Find(&rows).Error, secret.ErrKeyMismatch)
	case "ups_login_auth":
		var rows []LoginAuth
		return errors.Is(d.db.WithContext(ctx).Find(&rows).Error, secret.ErrKeyMismatch)
	default:
		return false
	}
}

// dropAndRecreate drops target.table and recreates it from target.model
// inside one transaction. Dropping ups_opt_mail_config cascades: referencing
// report schedules are deleted and notification settings referencing it
// have their mail_config_id nulled.
func (d *DriftDetector) dropAndRecreate(ctx context.Context, target driftTarget) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if target.table == "ups_opt_mail_config" {
			if err := tx.Exec("DELETE FROM ups_report_schedules WHERE mail_config_id IN (SELECT id FROM ups_opt_mail_config)").Error; err != nil {
				return fmt.Errorf("cascade: delete report schedules: %w", err)
			}
			if err := tx.Exec("UPDATE ups_opt_notification SET mail_config_id = NULL WHERE mail_config_id IN (SELECT id FROM ups_opt_mail_config)").Error; err != nil {
				return fmt.Errorf("cascade: clear notification mail_config_id: %w", err)
			}
		}

		if err := tx.Migrator().DropTable(target.table); err != nil {
			return fmt.Errorf("drop %s: %w", target.table, err)
		}
		if err := tx.AutoMigrate(target.model); err != nil {
			return fmt.Errorf("recreate %s: %w", target.table, err)
		}
		return nil
	})
}
