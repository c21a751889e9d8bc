package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/nutify/nutify/internal/notify"
	"github.com/nutify/nutify/internal/secret"
	"github.com/nutify/nutify/internal/storage"
)

// Scheduler wraps gocron, mapping one ReportSchedule row to one gocron job
// tagged by the row's ID.
type Scheduler struct {
	cron       gocron.Scheduler
	schedules  storage.ReportScheduleRepository
	mail       storage.MailConfigRepository
	dynamic    storage.DynamicRepository
	events     storage.EventRepository
	setup      storage.InitialSetupRepository
	variables  storage.VariableConfigRepository
	loc        *time.Location
	upsName    string
	log        *zap.Logger
}

// New builds and configures a Scheduler. Call Start to begin processing.
func New(
	schedules storage.ReportScheduleRepository,
	mail storage.MailConfigRepository,
	dynamic storage.DynamicRepository,
	events storage.EventRepository,
	setup storage.InitialSetupRepository,
	variables storage.VariableConfigRepository,
	loc *time.Location,
	upsName string,
	log *zap.Logger,
) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("reports: create gocron scheduler: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron,
		schedules: schedules,
		mail:      mail,
		dynamic:   dynamic,
		events:    events,
		setup:     setup,
		variables: variables,
		loc:       loc,
		upsName:   upsName,
		log:       log.Named("reports"),
	}, nil
}

// Start loads every enabled schedule, registers its gocron job, and starts
// the underlying scheduler. Call once at daemon startup.
func (s *Scheduler) Start(ctx context.Context) error {
	rows, err := s.schedules.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("reports: load enabled schedules: %w", err)
	}
	for i := range rows {
		if err := s.addJob(&rows[i]); err != nil {
			s.log.Error("schedule report job", zap.Uint("schedule_id", rows[i].ID), zap.Error(err))
		}
	}
	s.log.Info("report scheduler started", zap.Int("schedules", len(rows)))
	s.cron.Start()
	return nil
}

// Stop waits for any in-flight report run to finish before returning.
func (s *Scheduler) Stop() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("reports: scheduler shutdown: %w", err)
	}
	return nil
}

// AddSchedule registers a newly created or re-enabled schedule. Safe to call
// while the scheduler is running.
func (s *Scheduler) AddSchedule(sched *storage.ReportSchedule) error {
	if err := s.addJob(sched); err != nil {
		return fmt.Errorf("reports: add schedule %d: %w", sched.ID, err)
	}
	return nil
}

// RemoveSchedule unregisters a schedule's gocron job.
func (s *Scheduler) RemoveSchedule(id uint) error {
	s.cron.RemoveByTags(tagFor(id))
	return nil
}

// UpdateSchedule re-registers a schedule after its cron expression or
// enabled state changed.
func (s *Scheduler) UpdateSchedule(sched *storage.ReportSchedule) error {
	s.cron.RemoveByTags(tagFor(sched.ID))
	if !sched.Enabled {
		return nil
	}
	return s.AddSchedule(sched)
}

// TriggerNow runs a schedule immediately, bypassing its cron expression.
func (s *Scheduler) TriggerNow(ctx context.Context, id uint) error {
	sched, err := s.schedules.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("reports: schedule %d not found: %w", id, err)
	}
	return s.GenerateAndSend(ctx, *sched)
}

func tagFor(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (s *Scheduler) addJob(sched *storage.ReportSchedule) error {
	_, err := s.cron.NewJob(
		gocron.CronJob(sched.CronExpression, false),
		gocron.NewTask(func(id uint) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			fresh, err := s.schedules.Get(ctx, id)
			if err != nil {
				s.log.Error("load schedule at tick time", zap.Uint("schedule_id", id), zap.Error(err))
				return
			}
			if err := s.GenerateAndSend(ctx, *fresh); err != nil {
				s.log.Error("generate and send report", zap.Uint("schedule_id", id), zap.Error(err))
			}
		}, sched.ID),
		gocron.WithTags(tagFor(sched.ID)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("gocron.NewJob failed for schedule %d (cron %q): %w", sched.ID, sched.CronExpression, err)
	}
	return nil
}

// GenerateAndSend computes the window, runs every enabled section's
// reporter, renders the composite HTML, resolves recipients, and
// dispatches via email.
func (s *Scheduler) GenerateAndSend(ctx context.Context, sched storage.ReportSchedule) error {
	from, to, err := Window(sched, s.loc, time.Now())
	if err != nil {
		return err
	}

	var sections []section
	var energy *energySummary
	for _, tag := range sectionOrder(sched.Sections) {
		stats, title, err := s.runSection(ctx, tag, from, to)
		if err != nil {
			s.log.Warn("report section failed", zap.String("section", tag), zap.Error(err))
			// A failed section degrades to an empty placeholder chart
			// rather than sinking the whole report.
			sections = append(sections, section{
				Title: titleCase(tag),
				Chart: renderSVGSeries(nil, 480, 160),
			})
			continue
		}
		if tag == "energy" {
			energy = s.energySummary(ctx, stats)
		}
		sections = append(sections, section{
			Title: title,
			Stats: stats,
			Chart: renderSVGSeries(stats.Series, 480, 160),
		})
	}

	serverName := "UPS Monitor"
	if setup, err := s.setup.Get(ctx); err == nil {
		serverName = setup.ServerName
	}

	html, err := renderReportHTML(reportTemplateData{
		ServerName: serverName,
		Title:      fmt.Sprintf("%s Report", titleCase(sched.Period)),
		From:       from.In(s.loc).Format("2006-01-02 15:04 MST"),
		To:         to.In(s.loc).Format("2006-01-02 15:04 MST"),
		Energy:     energy,
		Sections:   sections,
	})
	if err != nil {
		return err
	}

	mailCfg, toAddrs, err := s.resolveRecipients(ctx, sched)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s - %s Report", serverName, titleCase(sched.Period))
	var sendErrs []string
	for _, toAddr := range toAddrs {
		if err := notify.SendRawEmail(ctx, mailCfg, toAddr, subject, html); err != nil {
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", toAddr, err))
		}
	}
	if len(sendErrs) == len(toAddrs) {
		return fmt.Errorf("reports: send: %s", strings.Join(sendErrs, "; "))
	}
	for _, e := range sendErrs {
		s.log.Warn("report send failed for one recipient", zap.Uint("schedule_id", sched.ID), zap.String("error", e))
	}

	if err := s.schedules.SetLastRun(ctx, sched.ID, time.Now().UTC()); err != nil {
		s.log.Warn("set last run", zap.Uint("schedule_id", sched.ID), zap.Error(err))
	}
	return nil
}

// energySummary sums the energy section's hourly watt-hour buckets and
// prices them with the configured per-kWh rate (0.25 when the variable
// config is unavailable).
func (s *Scheduler) energySummary(ctx context.Context, stats Stats) *energySummary {
	var totalWh float64
	for _, p := range stats.Series {
		totalWh += p.Value
	}

	price, currency := 0.25, "EUR"
	if s.variables != nil {
		if cfg, err := s.variables.Get(ctx); err == nil {
			price, currency = cfg.PricePerKWh, cfg.Currency
		}
	}
	return &energySummary{
		TotalWh:  totalWh,
		Cost:     totalWh / 1000 * price,
		Currency: currency,
	}
}

func (s *Scheduler) runSection(ctx context.Context, tag string, from, to time.Time) (Stats, string, error) {
	switch tag {
	case "energy":
		stats, err := EnergyReporter(ctx, s.dynamic, s.upsName, from, to)
		return stats, "Energy", err
	case "battery":
		stats, err := BatteryReporter(ctx, s.dynamic, s.upsName, from, to)
		return stats, "Battery", err
	case "power":
		stats, err := PowerReporter(ctx, s.dynamic, s.upsName, from, to)
		return stats, "Power", err
	case "voltage":
		stats, err := VoltageReporter(ctx, s.dynamic, s.upsName, from, to)
		return stats, "Voltage", err
	case "events":
		stats, err := EventsReporter(ctx, s.events, s.upsName, from, to)
		return stats, "Events", err
	default:
		return Stats{}, "", fmt.Errorf("reports: unknown section %q", tag)
	}
}

// resolveRecipients implements step 4: mail_config_id wins if set,
// otherwise the schedule's explicit recipients list; each candidate is
// validated and invalid ones dropped; failing only if none remain. Every
// valid address is returned: the stored recipients list is plural, and a
// schedule with several explicit addresses sends to all of them, not just
// the first.
func (s *Scheduler) resolveRecipients(ctx context.Context, sched storage.ReportSchedule) (storage.MailConfig, []string, error) {
	if sched.MailConfigID != nil {
		cfg, err := s.mail.Get(ctx, *sched.MailConfigID)
		if err != nil {
			if errors.Is(err, secret.ErrKeyMismatch) {
				return storage.MailConfig{}, nil, fmt.Errorf("reports: mail config %d: %w", *sched.MailConfigID, notify.ErrPasswordUndecryptable)
			}
			return storage.MailConfig{}, nil, fmt.Errorf("reports: load mail config: %w", err)
		}
		if !notify.ValidateAddress(cfg.DefaultRecipient) {
			return storage.MailConfig{}, nil, fmt.Errorf("reports: mail config %d has no valid recipient", cfg.ID)
		}
		return *cfg, []string{cfg.DefaultRecipient}, nil
	}

	configs, err := s.mail.List(ctx)
	if err != nil || len(configs) == 0 {
		return storage.MailConfig{}, nil, fmt.Errorf("reports: no mail config available for schedule %d", sched.ID)
	}
	cfg := configs[0]

	var valid []string
	for _, raw := range recipientAddresses(sched.Recipients) {
		if !notify.ValidateAddress(raw) {
			continue
		}
		valid = append(valid, raw)
	}
	if len(valid) == 0 {
		return storage.MailConfig{}, nil, fmt.Errorf("reports: schedule %d has no valid recipients", sched.ID)
	}
	return cfg, valid, nil
}

// recipientAddresses reads the explicit recipient list stored under the
// "addresses" key (same ordered-list-in-a-JSONMap convention as
// sectionOrder's "order" key).
func recipientAddresses(recipients storage.JSONMap) []string {
	raw, ok := recipients["addresses"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var addrs []string
	for _, v := range list {
		if s, ok := v.(string); ok {
			addrs = append(addrs, s)
		}
	}
	return addrs
}

// sectionOrder returns the configured section tags in insertion order when
// Sections was built from an ordered JSON array (stored as a list under the
// "order" key), falling back to the full fixed set if absent.
func sectionOrder(sections storage.JSONMap) []string {
	if raw, ok := sections["order"]; ok {
		if list, ok := raw.([]any); ok {
			var tags []string
			for _, v := range list {
				if s, ok := v.(string); ok {
					tags = append(tags, s)
				}
			}
			if len(tags) > 0 {
				return tags
			}
		}
	}
	return []string{"energy", "battery", "power", "voltage", "events"}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
