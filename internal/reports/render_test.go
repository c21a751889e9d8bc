package reports

import (
	"strings"
	"testing"
	"time"
)

func TestRenderSVGSeriesEmpty(t *testing.T) {
	out := renderSVGSeries(nil, 100, 50)
	if !strings.Contains(string(out), `width="100"`) || !strings.Contains(string(out), `height="50"`) {
		t.Errorf("expected empty placeholder svg with given dimensions, got %s", out)
	}
}

func TestRenderSVGSeriesProducesPolyline(t *testing.T) {
	series := []Point{
		{At: time.Now(), Value: 1},
		{At: time.Now(), Value: 5},
		{At: time.Now(), Value: 3},
	}
	out := renderSVGSeries(series, 480, 160)
	if !strings.Contains(string(out), "<polyline") {
		t.Errorf("expected a polyline element, got %s", out)
	}
}

func TestRenderSVGSeriesConstantValueDoesNotDivideByZero(t *testing.T) {
	series := []Point{
		{At: time.Now(), Value: 4},
		{At: time.Now(), Value: 4},
	}
	out := renderSVGSeries(series, 100, 100)
	if strings.Contains(string(out), "NaN") || strings.Contains(string(out), "Inf") {
		t.Errorf("expected finite coordinates for a flat series, got %s", out)
	}
}

func TestRenderReportHTMLIncludesSections(t *testing.T) {
	html, err := renderReportHTML(reportTemplateData{
		ServerName: "UPS Monitor",
		Title:      "Daily Report",
		From:       "2026-07-30 00:00 UTC",
		To:         "2026-07-31 00:00 UTC",
		Sections: []section{
			{Title: "Energy", Stats: Stats{Min: 1, Max: 2, Avg: 1.5, Current: 2}, Chart: renderSVGSeries(nil, 10, 10)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "UPS Monitor") || !strings.Contains(html, "Energy") {
		t.Errorf("expected rendered report to contain server name and section title, got %s", html)
	}
}
