package reports

import (
	"context"
	"testing"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

type fakeMailConfigs struct {
	byID map[uint]storage.MailConfig
	list []storage.MailConfig
}

func (f *fakeMailConfigs) Create(ctx context.Context, cfg *storage.MailConfig) error { return nil }
func (f *fakeMailConfigs) Get(ctx context.Context, id uint) (*storage.MailConfig, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}
func (f *fakeMailConfigs) Update(ctx context.Context, cfg *storage.MailConfig) error { return nil }
func (f *fakeMailConfigs) Delete(ctx context.Context, id uint) error                 { return nil }
func (f *fakeMailConfigs) List(ctx context.Context) ([]storage.MailConfig, error)    { return f.list, nil }

func newTestScheduler(t *testing.T, mail *fakeMailConfigs) *Scheduler {
	t.Helper()
	s, err := New(nil, mail, &fakeDynamicRange{}, &fakeEventList{}, nil, nil, time.UTC, "ups1", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSectionOrderDefaultsToFixedSet(t *testing.T) {
	got := sectionOrder(storage.JSONMap{})
	want := []string{"energy", "battery", "power", "voltage", "events"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestSectionOrderHonorsExplicitOrder(t *testing.T) {
	got := sectionOrder(storage.JSONMap{"order": []any{"events", "energy"}})
	if len(got) != 2 || got[0] != "events" || got[1] != "energy" {
		t.Errorf("got %v, want [events energy]", got)
	}
}

func TestRecipientAddressesReadsList(t *testing.T) {
	got := recipientAddresses(storage.JSONMap{"addresses": []any{"a@example.com", "b@example.com"}})
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("got %v", got)
	}
}

func TestRecipientAddressesMissingKeyReturnsNil(t *testing.T) {
	if got := recipientAddresses(storage.JSONMap{}); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{"daily": "Daily", "weekly": "Weekly", "": ""}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveRecipientsPrefersMailConfigID(t *testing.T) {
	id := uint(7)
	mail := &fakeMailConfigs{byID: map[uint]storage.MailConfig{
		7: {DefaultRecipient: "ops@example.com"},
	}}
	s := newTestScheduler(t, mail)

	cfg, addrs, err := s.resolveRecipients(context.Background(), storage.ReportSchedule{MailConfigID: &id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0] != "ops@example.com" || cfg.DefaultRecipient != "ops@example.com" {
		t.Errorf("addrs=%v cfg=%+v", addrs, cfg)
	}
}

func TestResolveRecipientsMailConfigIDInvalidRecipientFails(t *testing.T) {
	id := uint(7)
	mail := &fakeMailConfigs{byID: map[uint]storage.MailConfig{7: {DefaultRecipient: "not-an-address"}}}
	s := newTestScheduler(t, mail)

	if _, _, err := s.resolveRecipients(context.Background(), storage.ReportSchedule{MailConfigID: &id}); err == nil {
		t.Fatal("expected error for invalid recipient address")
	}
}

func TestResolveRecipientsFallsBackToExplicitListAndKeepsAllValid(t *testing.T) {
	mail := &fakeMailConfigs{list: []storage.MailConfig{{Server: "smtp.example.com"}}}
	s := newTestScheduler(t, mail)

	sched := storage.ReportSchedule{
		Recipients: storage.JSONMap{"addresses": []any{"not-valid", "ok@example.com", "also-ok@example.com"}},
	}
	cfg, addrs, err := s.resolveRecipients(context.Background(), sched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 2 || addrs[0] != "ok@example.com" || addrs[1] != "also-ok@example.com" {
		t.Errorf("addrs = %v, want [ok@example.com also-ok@example.com] (every valid entry, invalid dropped)", addrs)
	}
	if cfg.Server != "smtp.example.com" {
		t.Errorf("expected the first available mail config, got %+v", cfg)
	}
}

func TestResolveRecipientsNoValidAddressesFails(t *testing.T) {
	mail := &fakeMailConfigs{list: []storage.MailConfig{{Server: "smtp.example.com"}}}
	s := newTestScheduler(t, mail)

	sched := storage.ReportSchedule{Recipients: storage.JSONMap{"addresses": []any{"not-valid"}}}
	if _, _, err := s.resolveRecipients(context.Background(), sched); err == nil {
		t.Fatal("expected error when no recipient addresses validate")
	}
}

func TestResolveRecipientsNoMailConfigAvailableFails(t *testing.T) {
	mail := &fakeMailConfigs{}
	s := newTestScheduler(t, mail)

	if _, _, err := s.resolveRecipients(context.Background(), storage.ReportSchedule{}); err == nil {
		t.Fatal("expected error when no mail config exists")
	}
}

func TestRunSectionUnknownTagFails(t *testing.T) {
	s := newTestScheduler(t, &fakeMailConfigs{})
	if _, _, err := s.runSection(context.Background(), "bogus", time.Now(), time.Now()); err == nil {
		t.Fatal("expected error for unknown section tag")
	}
}

func TestRunSectionEnergyDelegatesToReporter(t *testing.T) {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	dyn := &fakeDynamicRange{rows: []storage.UPSDynamicData{{TimestampUTC: base, UPSRealpowerHrs: floatPtr(3)}}}
	s, err := New(nil, &fakeMailConfigs{}, dyn, &fakeEventList{}, nil, nil, time.UTC, "ups1", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stats, title, err := s.runSection(context.Background(), "energy", base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Energy" || stats.Current != 3 {
		t.Errorf("title=%q stats=%+v", title, stats)
	}
}

type fakeVariableConfig struct {
	cfg storage.VariableConfig
}

func (f *fakeVariableConfig) Get(ctx context.Context) (*storage.VariableConfig, error) {
	return &f.cfg, nil
}
func (f *fakeVariableConfig) Update(ctx context.Context, cfg *storage.VariableConfig) error {
	f.cfg = *cfg
	return nil
}

func TestEnergySummaryPricesTotalEnergy(t *testing.T) {
	vars := &fakeVariableConfig{cfg: storage.VariableConfig{PricePerKWh: 0.30, Currency: "USD"}}
	s, err := New(nil, &fakeMailConfigs{}, &fakeDynamicRange{}, &fakeEventList{}, nil, vars, time.UTC, "ups1", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stats := Stats{Series: []Point{{Value: 500}, {Value: 1500}}} // 2000 Wh total
	got := s.energySummary(context.Background(), stats)

	if got.TotalWh != 2000 {
		t.Errorf("TotalWh = %v, want 2000", got.TotalWh)
	}
	if want := 2.0 * 0.30; got.Cost != want {
		t.Errorf("Cost = %v, want %v", got.Cost, want)
	}
	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", got.Currency)
	}
}

func TestEnergySummaryDefaultsWithoutVariableConfig(t *testing.T) {
	s := newTestScheduler(t, &fakeMailConfigs{})
	got := s.energySummary(context.Background(), Stats{Series: []Point{{Value: 1000}}})
	if got.Cost != 0.25 || got.Currency != "EUR" {
		t.Errorf("got cost=%v currency=%q, want the 0.25/kWh EUR default", got.Cost, got.Currency)
	}
}
