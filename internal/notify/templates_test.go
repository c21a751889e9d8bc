package notify

import (
	"strings"
	"testing"
	"time"
)

func sampleEvent() EnrichedEvent {
	return EnrichedEvent{
		EventType:     "ONBATT",
		UPSName:       "office",
		ServerName:    "Test Server",
		Model:         "Back-UPS 900",
		Status:        "OB",
		BatteryCharge: "87%",
		InputVoltage:  "0 V",
		RuntimeMinutes: "42 min",
		At:            time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC),
	}
}

func TestTemplateForKnownEventType(t *testing.T) {
	tmpl := templateFor("ONBATT", false)
	if tmpl.subject != genericSubject {
		t.Errorf("subject = %q, want the fixed server/event format", tmpl.subject)
	}
	if !strings.Contains(tmpl.htmlBody, "Running on battery") {
		t.Errorf("html body = %q, want the event headline as the lead-in", tmpl.htmlBody)
	}
	if !strings.Contains(tmpl.textBody, "Running on battery") {
		t.Errorf("text body = %q, want the event headline as the lead-in", tmpl.textBody)
	}
}

func TestRenderSubjectUsesFixedFormat(t *testing.T) {
	event := sampleEvent()
	tmpl := templateFor(event.EventType, false)
	got, err := renderSubject(tmpl.subject, event)
	if err != nil {
		t.Fatalf("renderSubject: %v", err)
	}
	if got != "Test Server - UPS Event: ONBATT" {
		t.Errorf("subject = %q, want %q", got, "Test Server - UPS Event: ONBATT")
	}
}

func TestTemplateForUnknownEventTypeFallsBackToGeneric(t *testing.T) {
	tmpl := templateFor("SOME_UNKNOWN_TYPE", false)
	if tmpl.subject != genericSubject {
		t.Errorf("subject = %q, want generic fallback", tmpl.subject)
	}
}

func TestTemplateForIsTestOverridesEventType(t *testing.T) {
	tmpl := templateFor("ONBATT", true)
	if tmpl.subject != testTemplate.subject {
		t.Errorf("subject = %q, want test template subject", tmpl.subject)
	}
}

func TestRenderSubjectSubstitutesFields(t *testing.T) {
	event := sampleEvent()
	tmpl := templateFor(event.EventType, false)
	got, err := renderSubject(tmpl.subject, event)
	if err != nil {
		t.Fatalf("renderSubject: %v", err)
	}
	if !strings.Contains(got, "Test Server") {
		t.Errorf("subject = %q, want it to contain server name", got)
	}
}

func TestRenderHTMLEscapesMessage(t *testing.T) {
	event := sampleEvent()
	event.Message = `<script>alert("x")</script>`
	got, err := renderHTML(genericHTMLBody, event)
	if err != nil {
		t.Fatalf("renderHTML: %v", err)
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("body = %q, want the script tag escaped", got)
	}
}

func TestRenderTextIncludesBatteryDuration(t *testing.T) {
	event := sampleEvent()
	event.EventType = "ONLINE"
	event.BatteryDuration = "12m34s"
	got, err := renderText(genericTextBody, event)
	if err != nil {
		t.Fatalf("renderText: %v", err)
	}
	if !strings.Contains(got, "12m34s") {
		t.Errorf("body = %q, want it to contain battery duration", got)
	}
}

func TestPriorityByEventHighForCritical(t *testing.T) {
	for _, eventType := range []string{"LOWBATT", "SHUTDOWN", "FSD"} {
		if got := priorityByEvent(eventType); got != 5 {
			t.Errorf("priorityByEvent(%s) = %d, want 5", eventType, got)
		}
	}
}

func TestPriorityByEventDefaultForUnknown(t *testing.T) {
	if got := priorityByEvent("SOME_UNKNOWN_TYPE"); got != 2 {
		t.Errorf("priorityByEvent = %d, want 2", got)
	}
}
