// Package timeline merges per-duty summaries, optional high-resolution duty
// samples, and rest-day sleep blocks into one gap-free, chronologically
// sorted month timeline plus duty/sleep background regions.
//
// The builder is stateless and deterministic: identical inputs produce
// identical output, with no dependence on the wall clock. All internal math
// runs on epoch milliseconds; display formatting belongs to tzreconcile.
package timeline

import (
	"log/slog"
	"sort"
	"time"

	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
)

// BuildInput is one month's worth of analysis data.
type BuildInput struct {
	// Duties in any order; the builder sorts by date first.
	Duties []roster.Duty
	// RestDays are modeled sleep periods on days with no duty.
	RestDays []roster.RestDaySleep
	// Month is any instant inside the target calendar month, in UTC.
	Month time.Time
	// HiRes maps duty ID to five-minute samples, present only for duties the
	// user has drilled into.
	HiRes map[string]*roster.DutyTimeline
}

// BuildResult is the chart-ready output.
type BuildResult struct {
	Points       []roster.TimelinePoint  `json:"points"`
	DutyRegions  []roster.TimelineRegion `json:"duty_regions"`
	SleepRegions []roster.TimelineRegion `json:"sleep_regions"`
}

// Builder constructs continuous timelines. Safe for concurrent use.
type Builder struct {
	logger *slog.Logger
	cfg    Config
}

// NewBuilder creates a Builder. A nil logger discards diagnostics.
func NewBuilder(cfg Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Build assembles the continuous timeline. Duties whose report or release
// timestamps do not parse are skipped with a warning; a month with zero
// usable duties yields empty arrays, not an error.
func (b *Builder) Build(in BuildInput) BuildResult {
	var res BuildResult

	duties := make([]roster.Duty, len(in.Duties))
	copy(duties, in.Duties)
	sort.SliceStable(duties, func(i, j int) bool {
		if duties[i].Date != duties[j].Date {
			return duties[i].Date < duties[j].Date
		}
		return duties[i].ReportUTC < duties[j].ReportUTC
	})

	lastPerf := b.cfg.BaselinePerformance
	var firstReportMs, lastReleaseMs int64
	emitted := false

	for i := range duties {
		d := &duties[i]
		reportMs, okReport := epochMs(d.ReportUTC)
		releaseMs, okRelease := epochMs(d.ReleaseUTC)
		if !okReport || !okRelease || releaseMs < reportMs {
			b.logger.Warn("skipping duty with unusable report/release times",
				"duty", d.ID, "report", d.ReportUTC, "release", d.ReleaseUTC)
			continue
		}
		if !emitted || reportMs < firstReportMs {
			firstReportMs = reportMs
		}
		if releaseMs > lastReleaseMs {
			lastReleaseMs = releaseMs
		}
		emitted = true

		if hi, ok := in.HiRes[d.ID]; ok && hi != nil && len(hi.Samples) > 0 {
			b.emitHiRes(&res, d, hi)
			if n := len(hi.Samples); n > 0 {
				lastPerf = hi.Samples[n-1].Performance
			}
		} else {
			lastPerf = b.emitCoarse(&res, d, reportMs, releaseMs, lastPerf)
		}

		res.DutyRegions = append(res.DutyRegions, roster.TimelineRegion{
			StartMs: reportMs,
			EndMs:   releaseMs,
			Kind:    "duty",
			Label:   dutyLabel(d),
			Risk:    dutyRisk(d),
		})

		if d.Sleep != nil {
			if region, ok := sleepRegion(d.Sleep.StartUTC, d.Sleep.EndUTC, d.Sleep.Strategy); ok {
				res.SleepRegions = append(res.SleepRegions, region)
			}
		}

		if i+1 < len(duties) {
			if nextReportMs, ok := epochMs(duties[i+1].ReportUTC); ok {
				lastPerf = b.emitRecovery(&res, d, releaseMs, nextReportMs, lastPerf)
			}
		}
	}

	for i := range in.RestDays {
		rd := &in.RestDays[i]
		if region, ok := sleepRegion(rd.Sleep.StartUTC, rd.Sleep.EndUTC, rd.Sleep.Strategy); ok {
			res.SleepRegions = append(res.SleepRegions, region)
		}
	}

	if emitted {
		b.bracketMonth(&res, in.Month, firstReportMs, lastReleaseMs)
	}

	sort.SliceStable(res.Points, func(i, j int) bool {
		return res.Points[i].TimeMs < res.Points[j].TimeMs
	})
	return res
}

// emitHiRes emits one point per five-minute sample verbatim.
func (b *Builder) emitHiRes(res *BuildResult, d *roster.Duty, hi *roster.DutyTimeline) {
	reservoir := b.reservoir(d.SleepDebt)
	for i := range hi.Samples {
		s := &hi.Samples[i]
		ms, ok := epochMs(s.Timestamp)
		if !ok {
			b.logger.Debug("skipping unparseable sample", "duty", d.ID, "timestamp", s.Timestamp)
			continue
		}
		phase := "duty"
		if s.IsInRest {
			phase = "rest"
		}
		res.Points = append(res.Points, roster.TimelinePoint{
			TimeMs:        ms,
			Performance:   s.Performance,
			Reservoir:     reservoir,
			Circadian:     s.Circadian,
			SleepPressure: s.SleepPressure,
			SleepInertia:  s.SleepInertia,
			FlightPhase:   s.FlightPhase,
			Phase:         phase,
			Risk:          roster.RiskFromPerformance(s.Performance),
			DutyLabel:     dutyLabel(d),
			HiRes:         true,
		})
	}
}

// emitCoarse synthesizes the five-point duty skeleton: pre-report transition,
// report, mid-duty nadir, optional landing, and release. A deliberate
// approximation that reads well at month scale without a backend recompute.
// Returns the performance of the last emitted point.
func (b *Builder) emitCoarse(res *BuildResult, d *roster.Duty, reportMs, releaseMs int64, prevPerf float64) float64 {
	reservoir := b.reservoir(d.SleepDebt)
	durMs := releaseMs - reportMs
	label := dutyLabel(d)

	var flightNum, dep, arr string
	if n := len(d.Segments); n > 0 {
		flightNum = d.Segments[0].FlightNumber
		dep = d.Segments[0].Departure
		arr = d.Segments[n-1].Arrival
	}
	point := func(ms int64, perf float64, phase string) roster.TimelinePoint {
		return roster.TimelinePoint{
			TimeMs:       ms,
			Performance:  perf,
			Reservoir:    reservoir,
			Phase:        phase,
			Risk:         roster.RiskFromPerformance(perf),
			DutyLabel:    label,
			FlightNumber: flightNum,
			Departure:    dep,
			Arrival:      arr,
		}
	}

	// Pre-report transition: never above the previous point, never above
	// avg+bonus, so the curve descends into the duty without an artifact.
	prePerf := min(prevPerf, d.AvgPerformance+b.cfg.PreReportCeilingBonus)
	res.Points = append(res.Points, point(reportMs-b.cfg.PreReportLead.Milliseconds(), prePerf, "awake"))

	res.Points = append(res.Points, point(reportMs, d.AvgPerformance, "duty"))

	nadirMs := reportMs + int64(float64(durMs)*b.cfg.NadirFraction)
	res.Points = append(res.Points, point(nadirMs, d.MinPerformance, "duty"))

	landing := d.LandingPerformance
	if landing == 0 {
		landing = d.MinPerformance
	}
	if landing != d.MinPerformance {
		landingMs := reportMs + int64(float64(durMs)*b.cfg.LandingFraction)
		res.Points = append(res.Points, point(landingMs, landing, "duty"))
	}

	releasePerf := d.AvgPerformance - b.cfg.ReleaseDrop
	res.Points = append(res.Points, point(releaseMs, releasePerf, "duty"))
	return releasePerf
}

// emitRecovery synthesizes the post-duty wind-down and post-sleep recovery
// points for gaps longer than RecoveryGapMin. Recovery improves linearly
// with gap length, scaled by the sleep estimate's efficiency, and is capped
// below full reset. Returns the performance of the last emitted point.
func (b *Builder) emitRecovery(res *BuildResult, d *roster.Duty, releaseMs, nextReportMs int64, prevPerf float64) float64 {
	gapMs := nextReportMs - releaseMs
	if gapMs <= b.cfg.RecoveryGapMin.Milliseconds() {
		return prevPerf
	}
	reservoir := b.reservoir(d.SleepDebt)

	windMs := releaseMs + b.cfg.WindDownDelay.Milliseconds()
	windPerf := d.AvgPerformance - b.cfg.WindDownDrop
	res.Points = append(res.Points, roster.TimelinePoint{
		TimeMs:      windMs,
		Performance: windPerf,
		Reservoir:   reservoir,
		Phase:       "awake",
		Risk:        roster.RiskFromPerformance(windPerf),
	})

	efficiency := 0.75
	if d.Sleep != nil && d.Sleep.Efficiency > 0 {
		efficiency = d.Sleep.Efficiency
	}
	rate := b.cfg.RecoveryRateMin + (b.cfg.RecoveryRateMax-b.cfg.RecoveryRateMin)*efficiency
	gapHours := float64(gapMs) / float64(time.Hour.Milliseconds())

	recPerf := min(b.cfg.RecoveryPerformanceCap, windPerf+rate*gapHours)
	recReservoir := min(b.cfg.RecoveryReservoirCap, reservoir+rate*gapHours)
	recMs := nextReportMs - b.cfg.RecoveryLead.Milliseconds()
	if recMs <= windMs {
		recMs = windMs + (nextReportMs-windMs)/2
	}
	res.Points = append(res.Points, roster.TimelinePoint{
		TimeMs:      recMs,
		Performance: recPerf,
		Reservoir:   recReservoir,
		Phase:       "awake",
		Risk:        roster.RiskFromPerformance(recPerf),
	})
	return recPerf
}

// bracketMonth pins rested baseline points at the month edges so charts do
// not render a cliff where the data starts or ends.
func (b *Builder) bracketMonth(res *BuildResult, month time.Time, firstReportMs, lastReleaseMs int64) {
	m := month.UTC()
	monthStart := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	baseline := func(ms int64) roster.TimelinePoint {
		return roster.TimelinePoint{
			TimeMs:      ms,
			Performance: b.cfg.BaselinePerformance,
			Reservoir:   b.cfg.BaselineReservoir,
			Phase:       "rest",
			Risk:        roster.RiskFromPerformance(b.cfg.BaselinePerformance),
		}
	}

	if firstReportMs > monthStart.UnixMilli() {
		res.Points = append(res.Points, baseline(monthStart.UnixMilli()))
	}
	if lastReleaseMs < monthEnd.Add(-b.cfg.TrailingGapMin).UnixMilli() {
		res.Points = append(res.Points, baseline(monthEnd.Add(-time.Hour).UnixMilli()))
	}
}

// reservoir converts sleep debt hours into the 50-100 display proxy.
func (b *Builder) reservoir(sleepDebt float64) float64 {
	r := b.cfg.ReservoirCeiling - sleepDebt*b.cfg.ReservoirDebtSlope
	if r < b.cfg.ReservoirFloor {
		return b.cfg.ReservoirFloor
	}
	if r > b.cfg.ReservoirCeiling {
		return b.cfg.ReservoirCeiling
	}
	return r
}

func dutyLabel(d *roster.Duty) string {
	if len(d.Segments) > 0 {
		return d.Date + " " + d.Segments[0].Departure + "-" + d.Segments[len(d.Segments)-1].Arrival
	}
	return d.Date
}

// dutyRisk prefers the backend classification, deriving from the duty's
// worst score only when none was supplied.
func dutyRisk(d *roster.Duty) roster.RiskLevel {
	if d.Risk != "" {
		return d.Risk
	}
	return roster.RiskFromPerformance(d.MinPerformance)
}

func sleepRegion(startUTC, endUTC, strategy string) (roster.TimelineRegion, bool) {
	startMs, okStart := epochMs(startUTC)
	endMs, okEnd := epochMs(endUTC)
	if !okStart || !okEnd || endMs < startMs {
		return roster.TimelineRegion{}, false
	}
	return roster.TimelineRegion{
		StartMs: startMs,
		EndMs:   endMs,
		Kind:    "sleep",
		Label:   strategy,
	}, true
}

// epochMs parses an ISO-8601 UTC timestamp into epoch milliseconds.
func epochMs(iso string) (int64, bool) {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}
