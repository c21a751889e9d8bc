package notify

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// eventTemplate pairs a subject line (plain text, used by all channels)
// with an HTML body (email) and a plain-text body (ntfy/webhook) for one
// event type. Selection is a fixed map, not inlined branching.
type eventTemplate struct {
	subject  string
	htmlBody string
	textBody string
}

// templateData is what each template body is rendered against.
type templateData = EnrichedEvent

const genericSubject = `{{.ServerName}} - UPS Event: {{.EventType}}`

const genericHTMLBody = `<p>UPS <strong>{{.UPSName}}</strong> reported event <strong>{{.EventType}}</strong> at {{.At.Format "2006-01-02 15:04:05 MST"}}.</p>
<ul>
<li>Status: {{.Status}}</li>
<li>Model: {{.Model}} ({{.Manufacturer}})</li>
<li>Battery charge: {{.BatteryCharge}}</li>
<li>Input voltage: {{.InputVoltage}}</li>
<li>Runtime estimate: {{.RuntimeMinutes}}</li>
{{if .BatteryDuration}}<li>Time on battery: {{.BatteryDuration}}</li>{{end}}
{{if .CommDuration}}<li>Communication outage duration: {{.CommDuration}}</li>{{end}}
</ul>
{{if .Message}}<p>{{.Message}}</p>{{end}}`

const genericTextBody = `UPS {{.UPSName}} reported {{.EventType}} at {{.At.Format "2006-01-02 15:04:05 MST"}}
Status: {{.Status}}
Battery: {{.BatteryCharge}}
Input: {{.InputVoltage}}
Runtime: {{.RuntimeMinutes}}
{{if .BatteryDuration}}Time on battery: {{.BatteryDuration}}
{{end}}{{if .CommDuration}}Comm outage: {{.CommDuration}}
{{end}}`

// eventHeadlines gives each event type its human wording. It appears as
// the body lead-in only; the subject line always stays the fixed
// "{server_name} - UPS Event: {event_type}" format so filters and threads
// keyed on the raw event type keep working.
var eventHeadlines = map[string]string{
	"ONLINE":   "Power restored",
	"ONBATT":   "Running on battery",
	"LOWBATT":  "Battery is low",
	"COMMBAD":  "Communication with the UPS lost",
	"COMMOK":   "Communication with the UPS restored",
	"SHUTDOWN": "System was shut down by the UPS",
	"REPLBATT": "Battery needs replacing",
	"NOCOMM":   "No communication with the UPS",
	"NOPARENT": "Monitor parent process died",
	"FSD":      "Forced shutdown in progress",
	"CAL":      "Runtime calibration in progress",
	"TRIM":     "Trimming incoming voltage",
	"BOOST":    "Boosting incoming voltage",
	"OFF":      "UPS output is off",
	"OVERLOAD": "UPS is overloaded",
	"BYPASS":   "UPS is on bypass",
	"NOBATT":   "No battery installed",
	"DATAOLD":  "UPS data is stale",
}

// eventTemplates is the closed map {event type -> template}; every event in
// the taxonomy shares the fixed subject and the structural body, prefixed
// with its own headline.
var eventTemplates = func() map[string]eventTemplate {
	m := make(map[string]eventTemplate, len(eventHeadlines))
	for eventType, headline := range eventHeadlines {
		m[eventType] = eventTemplate{
			subject:  genericSubject,
			htmlBody: "<p><strong>" + headline + ".</strong></p>\n" + genericHTMLBody,
			textBody: headline + ".\n" + genericTextBody,
		}
	}
	return m
}()

// testTemplate backs the test-notification path. It is not keyed by
// event type.
var testTemplate = eventTemplate{
	subject:  `{{.ServerName}} - UPS Event: Test Notification`,
	htmlBody: `<p>This is a test notification from Nutify. If you received this, your notification channel is configured correctly.</p>`,
	textBody: `This is a test notification from Nutify. If you received this, your notification channel is configured correctly.`,
}

// templateFor returns the template for eventType, falling back to the
// generic structural template (without a headline) for any type outside
// the closed taxonomy map.
func templateFor(eventType string, isTest bool) eventTemplate {
	if isTest {
		return testTemplate
	}
	if t, ok := eventTemplates[eventType]; ok {
		return t
	}
	return eventTemplate{
		subject:  genericSubject,
		htmlBody: genericHTMLBody,
		textBody: genericTextBody,
	}
}

// renderSubject renders a plain-text subject line. Subjects are never user
// content beyond the server name/event type, so text/template (no
// escaping) is sufficient.
func renderSubject(tmpl string, data templateData) (string, error) {
	t, err := texttemplate.New("subject").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("notify: parse subject template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render subject: %w", err)
	}
	return buf.String(), nil
}

// renderHTML renders the HTML-escaped email body.
func renderHTML(tmpl string, data templateData) (string, error) {
	t, err := template.New("body").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("notify: parse html body template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render html body: %w", err)
	}
	return buf.String(), nil
}

// renderText renders the plain-text body used by ntfy and webhook.
func renderText(tmpl string, data templateData) (string, error) {
	t, err := texttemplate.New("text_body").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("notify: parse text body template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render text body: %w", err)
	}
	return buf.String(), nil
}
