package events

import (
	"context"
	"testing"

	"github.com/nutify/nutify/internal/storage"
)

type fakePublisher struct {
	published []any
}

func (f *fakePublisher) PublishEvent(payload any) {
	f.published = append(f.published, payload)
}

func newTestPipeline() (*Pipeline, *fakeEvents, *fakePublisher) {
	ev := &fakeEvents{}
	pub := &fakePublisher{}
	p := NewPipeline(
		ev,
		&fakeStatic{rows: map[string]storage.UPSStaticData{}},
		&fakeDynamic{latest: map[string]storage.UPSDynamicData{}},
		&fakeSetup{},
		nil,
		pub,
		nil,
	)
	return p, ev, pub
}

func TestDispatchStandardArgs(t *testing.T) {
	p, ev, pub := newTestPipeline()
	if err := p.Dispatch(context.Background(), []string{"office@localhost", "ONBATT"}, "10.0.0.5"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(ev.created) != 1 {
		t.Fatalf("created = %d events, want 1", len(ev.created))
	}
	if ev.created[0].UPSName != "office@localhost" || ev.created[0].EventType != "ONBATT" {
		t.Errorf("created event = %+v", ev.created[0])
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d messages, want 1", len(pub.published))
	}
}

func TestDispatchLegacyFreeText(t *testing.T) {
	p, ev, _ := newTestPipeline()
	if err := p.Dispatch(context.Background(), []string{"UPS office@localhost on battery"}, ""); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(ev.created) != 1 {
		t.Fatalf("created = %d events, want 1", len(ev.created))
	}
	if ev.created[0].UPSName != "office@localhost" || ev.created[0].EventType != EventOnBatt {
		t.Errorf("created event = %+v", ev.created[0])
	}
}

func TestDispatchUnrecognizedLegacyTextFails(t *testing.T) {
	p, _, _ := newTestPipeline()
	err := p.Dispatch(context.Background(), []string{"this matches nothing"}, "")
	if err == nil {
		t.Fatal("expected an error for unrecognized legacy text")
	}
}

func TestDispatchWrongArgCountFails(t *testing.T) {
	p, _, _ := newTestPipeline()
	err := p.Dispatch(context.Background(), []string{"a", "b", "c"}, "")
	if err == nil {
		t.Fatal("expected an error for an unexpected argument count")
	}
}

func TestParseArgsStandardShape(t *testing.T) {
	ups, eventType, msg, err := parseArgs([]string{"rack1@host1", "LOWBATT"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if ups != "rack1@host1" || eventType != "LOWBATT" || msg != "" {
		t.Errorf("got (%q, %q, %q)", ups, eventType, msg)
	}
}

func TestParseArgsLegacyStandardFormatInOneToken(t *testing.T) {
	ups, eventType, _, err := parseArgs([]string{"rack1@host1 LOWBATT"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if ups != "rack1@host1" || eventType != "LOWBATT" {
		t.Errorf("got (%q, %q)", ups, eventType)
	}
}
