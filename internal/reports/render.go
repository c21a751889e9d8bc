package reports

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// section is one rendered report block: a title, its stats, and an inline
// SVG chart.
type section struct {
	Title string
	Stats Stats
	Chart template.HTML
}

// renderSVGSeries draws series as a simple polyline in a fixed-size SVG
// viewport, inlined directly into the report so the whole document still
// fits in one HTML email.
func renderSVGSeries(series []Point, width, height int) template.HTML {
	if len(series) == 0 {
		return template.HTML(fmt.Sprintf(`<svg width="%d" height="%d"></svg>`, width, height))
	}

	lo, hi := series[0].Value, series[0].Value
	for _, p := range series {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var points strings.Builder
	n := len(series)
	denom := n - 1
	if denom < 1 {
		denom = 1
	}
	for i, p := range series {
		x := float64(width) * float64(i) / float64(denom)
		y := float64(height) - (p.Value-lo)/span*float64(height)
		if i > 0 {
			points.WriteByte(' ')
		}
		fmt.Fprintf(&points, "%.1f,%.1f", x, y)
	}

	return template.HTML(fmt.Sprintf(
		`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+
			`<polyline fill="none" stroke="#2a6ebb" stroke-width="2" points="%s"/></svg>`,
		width, height, width, height, points.String(),
	))
}

const reportTemplateSrc = `<!DOCTYPE html>
<html><body style="font-family: sans-serif;">
<h2>{{.ServerName}} - {{.Title}}</h2>
<p>Window: {{.From}} to {{.To}}</p>
{{with .Energy}}<p>Total energy: {{printf "%.1f" .TotalWh}} Wh | Estimated cost: {{printf "%.2f" .Cost}} {{.Currency}}</p>{{end}}
{{range .Sections}}
<h3>{{.Title}}</h3>
<p>Min: {{printf "%.2f" .Stats.Min}} | Max: {{printf "%.2f" .Stats.Max}} | Avg: {{printf "%.2f" .Stats.Avg}} | Current: {{printf "%.2f" .Stats.Current}}</p>
{{.Chart}}
{{end}}
</body></html>`

// energySummary totals the window's hourly watt-hour buckets and prices
// them: cost = totalWh/1000 × price-per-kWh from the variable config.
type energySummary struct {
	TotalWh  float64
	Cost     float64
	Currency string
}

type reportTemplateData struct {
	ServerName string
	Title      string
	From       string
	To         string
	Energy     *energySummary
	Sections   []section
}

func renderReportHTML(data reportTemplateData) (string, error) {
	t, err := template.New("report").Parse(reportTemplateSrc)
	if err != nil {
		return "", fmt.Errorf("reports: parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("reports: render template: %w", err)
	}
	return buf.String(), nil
}
