// Package chart renders the month fatigue overview for terminals.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
)

const barWidth = 40

func riskColor(risk roster.RiskLevel) *color.Color {
	switch risk {
	case roster.RiskCritical, roster.RiskExtreme:
		return color.New(color.FgRed)
	case roster.RiskHigh:
		return color.New(color.FgYellow)
	case roster.RiskModerate:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgGreen)
	}
}

func bar(performance float64, risk roster.RiskLevel) string {
	if math.IsNaN(performance) {
		return color.New(color.FgHiBlack).Sprint("?")
	}
	length := int(performance / 100 * barWidth)
	if length < 1 {
		length = 1
	}
	if length > barWidth {
		length = barWidth
	}
	return riskColor(risk).Sprint(strings.Repeat("█", length))
}

// RenderMonth builds the duty-by-duty overview: one line per duty with a
// performance bar colored by risk, sleep lines beneath the duties they
// precede, and a summary block.
func RenderMonth(results *roster.AnalysisResults) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("✈️  Fatigue Overview — %s (%s)\n", results.Month, results.PilotID))
	output.WriteString(strings.Repeat("─", 60) + "\n")

	if len(results.Duties) == 0 {
		output.WriteString("No duties this month\n")
		return output.String()
	}

	grey := color.New(color.FgHiBlack)
	for i := range results.Duties {
		d := &results.Duties[i]

		if d.Sleep != nil && d.Sleep.TotalHours > 0 {
			woclNote := ""
			if d.Sleep.WOCLOverlap > 0 {
				woclNote = fmt.Sprintf(", %.1fh WOCL", d.Sleep.WOCLOverlap)
			}
			output.WriteString(grey.Sprintf("        💤 %.1fh sleep (%.0f%% efficient%s)\n",
				d.Sleep.TotalHours, d.Sleep.Efficiency*100, woclNote))
		}

		route := routeOf(d)
		line := fmt.Sprintf("%s  %-11s min %4.1f  ", d.Date, route, d.MinPerformance)
		line += bar(d.MinPerformance, d.Risk)
		if d.Risk == roster.RiskCritical || d.Risk == roster.RiskExtreme {
			line += " " + riskColor(d.Risk).Sprintf("⚠ %s", d.Risk)
		}
		output.WriteString(line + "\n")
	}

	output.WriteString(strings.Repeat("─", 60) + "\n")
	output.WriteString(renderStats(results))
	return output.String()
}

func routeOf(d *roster.Duty) string {
	if len(d.Segments) == 0 {
		return d.ID
	}
	codes := make([]string, 0, len(d.Segments)+1)
	codes = append(codes, d.Segments[0].Departure)
	for i := range d.Segments {
		codes = append(codes, d.Segments[i].Arrival)
	}
	return strings.Join(codes, "-")
}

func renderStats(results *roster.AnalysisResults) string {
	stats := &results.Stats
	critical := 0
	for i := range results.Duties {
		switch results.Duties[i].Risk {
		case roster.RiskCritical, roster.RiskExtreme:
			critical++
		}
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Duties: %d   Block: %.1fh   Duty: %.1fh\n",
		stats.TotalDuties, stats.TotalBlockHours, stats.TotalDutyHours))
	output.WriteString(fmt.Sprintf("Performance: avg %.1f, worst %.1f\n",
		stats.AvgPerformance, stats.MinPerformance))

	if critical > 0 {
		output.WriteString(color.New(color.FgRed).Sprintf("Critical duties: %d\n", critical))
	}
	if stats.HighRiskDuties > 0 {
		output.WriteString(color.New(color.FgYellow).Sprintf("High-risk duties: %d\n", stats.HighRiskDuties))
	}
	return output.String()
}

// RenderTimeline draws a compact strip of the continuous timeline, one glyph
// per point, for quick inspection without the web chart.
func RenderTimeline(points []roster.TimelinePoint) string {
	if len(points) == 0 {
		return "No timeline points\n"
	}

	var output strings.Builder
	output.WriteString("Timeline (" + fmt.Sprint(len(points)) + " points)\n")
	for _, p := range points {
		glyph := "·"
		switch p.Phase {
		case "duty":
			glyph = "▄"
		case "sleep":
			glyph = "z"
		case "rest":
			glyph = "~"
		}
		output.WriteString(riskColor(p.Risk).Sprint(glyph))
	}
	output.WriteString("\n")
	return output.String()
}
