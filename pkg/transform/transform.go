// Package transform maps the analysis service's wire format into the domain
// model, deriving the fields the backend leaves implicit: block hours from
// local clock arithmetic and per-segment performance scores by interpolation.
//
// The segment interpolation here is a display-only approximation with no
// scientific basis, unlike the backend's fatigue math. It exists solely to
// give multi-sector duties visually distinct per-leg scores when
// high-resolution data was not requested, and genuine backend per-segment
// figures always take precedence.
package transform

import (
	"errors"
	"log/slog"
	"time"

	"github.com/aeroviz-dev/fatigueviz/pkg/fatigueapi"
	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
)

// TurnaroundHours is the nominal ground time assumed between segments when
// arrival timestamps are unparseable and elapsed time must be accumulated
// from block hours instead.
const TurnaroundHours = 0.5

// ErrNilResponse is returned when there is no analysis payload to map.
var ErrNilResponse = errors.New("nil analysis response")

// Mapper converts wire payloads into domain values.
type Mapper struct {
	logger *slog.Logger
}

// NewMapper creates a Mapper. A nil logger discards diagnostics.
func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mapper{logger: logger}
}

// MapAnalysis converts a full analysis response into the domain model.
func (m *Mapper) MapAnalysis(resp *fatigueapi.AnalysisResponse) (*roster.AnalysisResults, error) {
	if resp == nil {
		return nil, ErrNilResponse
	}

	out := &roster.AnalysisResults{
		AnalysisID:   resp.AnalysisID,
		PilotID:      resp.PilotID,
		PilotName:    resp.PilotName,
		HomeBase:     resp.HomeBase,
		HomeTimezone: resp.HomeBaseTimezone,
		Month:        resp.Month,
		Stats: roster.Stats{
			TotalDuties:     resp.Stats.TotalDuties,
			TotalBlockHours: resp.Stats.TotalBlockHours,
			TotalDutyHours:  resp.Stats.TotalDutyHours,
			AvgPerformance:  resp.Stats.AvgPerformance,
			MinPerformance:  resp.Stats.MinPerformance,
			HighRiskDuties:  resp.Stats.HighRiskDuties,
			TotalSleepDebt:  resp.Stats.TotalSleepDebt,
		},
	}

	out.Duties = make([]roster.Duty, 0, len(resp.Duties))
	for i := range resp.Duties {
		out.Duties = append(out.Duties, m.mapDuty(&resp.Duties[i]))
	}
	for i := range resp.RestDaysSleep {
		rd := &resp.RestDaysSleep[i]
		out.RestDays = append(out.RestDays, roster.RestDaySleep{
			Date:  rd.Date,
			Sleep: *mapSleepEstimate(&rd.Sleep),
		})
	}
	for _, bc := range resp.BodyClockTimeline {
		out.BodyClock = append(out.BodyClock, roster.BodyClockSample{
			TimeUTC:           bc.TimeUTC,
			PhaseShiftHours:   bc.PhaseShiftHours,
			ReferenceTimezone: bc.ReferenceTimezone,
		})
	}
	return out, nil
}

func (m *Mapper) mapDuty(p *fatigueapi.DutyPayload) roster.Duty {
	minPerf := clamp01to100(p.MinPerformance)
	avgPerf := clamp01to100(p.AvgPerformance)
	if minPerf > avgPerf {
		// The service guarantees min <= avg; a violation means a corrupt
		// payload, so take the conservative reading.
		m.logger.Warn("duty min performance above avg, clamping", "duty", p.DutyID,
			"min", p.MinPerformance, "avg", p.AvgPerformance)
		minPerf = avgPerf
	}
	landing := minPerf
	if p.LandingPerformance != nil {
		landing = clamp01to100(*p.LandingPerformance)
	}

	d := roster.Duty{
		ID:                 p.DutyID,
		Date:               p.Date,
		ReportUTC:          p.ReportTimeUTC,
		ReleaseUTC:         p.ReleaseTimeUTC,
		ReportLocal:        p.ReportTimeLocal,
		ReleaseLocal:       p.ReleaseTimeLocal,
		DutyHours:          p.DutyHours,
		MinPerformance:     minPerf,
		AvgPerformance:     avgPerf,
		LandingPerformance: landing,
		SleepDebt:          p.SleepDebtHours,
		PriorSleep:         p.PriorSleepHours,
		WOCLHours:          p.WOCLHours,
		Risk:               roster.ParseRiskLevel(p.RiskLevel, minPerf),
	}
	if p.SleepEstimate != nil {
		d.Sleep = mapSleepEstimate(p.SleepEstimate)
	}
	if p.Crew != nil {
		d.Crew = &roster.CrewInfo{
			Augmented:         p.Crew.Augmented,
			CrewSize:          p.Crew.CrewSize,
			RestFacilityClass: p.Crew.RestFacilityClass,
			ULR:               p.Crew.ULR,
		}
	}

	d.Segments = make([]roster.FlightSegment, 0, len(p.Segments))
	for i := range p.Segments {
		d.Segments = append(d.Segments, mapSegment(&p.Segments[i]))
	}
	m.fillSegmentPerformance(&d, p)
	return d
}

func mapSegment(s *fatigueapi.SegmentPayload) roster.FlightSegment {
	seg := roster.FlightSegment{
		FlightNumber:       s.FlightNumber,
		Departure:          s.Departure,
		Arrival:            s.Arrival,
		DepartureUTC:       s.DepartureTimeUTC,
		ArrivalUTC:         s.ArrivalTimeUTC,
		DepartureLocal:     s.DepartureTimeLocal,
		ArrivalLocal:       s.ArrivalTimeLocal,
		DepartureHome:      s.DepartureTimeHome,
		ArrivalHome:        s.ArrivalTimeHome,
		DepartureTimezone:  s.DepartureTimezone,
		ArrivalTimezone:    s.ArrivalTimezone,
		DepartureUTCOffset: s.DepartureUTCOffset,
		ArrivalUTCOffset:   s.ArrivalUTCOffset,
	}
	if s.BlockHours != nil {
		seg.BlockHours = *s.BlockHours
	} else {
		seg.BlockHours = deriveBlockHours(s)
	}
	return seg
}

// deriveBlockHours subtracts the local departure clock from the local
// arrival clock, wrapping at midnight (a negative difference means arrival
// the next day, so add 24h). Falls back to UTC timestamp subtraction when
// the local clocks are unusable.
func deriveBlockHours(s *fatigueapi.SegmentPayload) float64 {
	dep, okDep := parseClock(s.DepartureTimeLocal)
	arr, okArr := parseClock(s.ArrivalTimeLocal)
	if okDep && okArr {
		diff := arr - dep
		if diff < 0 {
			diff += 24
		}
		return diff
	}

	depT, errDep := time.Parse(time.RFC3339, s.DepartureTimeUTC)
	arrT, errArr := time.Parse(time.RFC3339, s.ArrivalTimeUTC)
	if errDep == nil && errArr == nil && arrT.After(depT) {
		return arrT.Sub(depT).Hours()
	}
	return 0
}

// parseClock converts "HH:MM" into a decimal hour.
func parseClock(hhmm string) (float64, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return float64(t.Hour()) + float64(t.Minute())/60.0, true
}

// fillSegmentPerformance estimates per-segment scores when the backend
// supplied only duty-level aggregates. Single-segment duties take the duty
// average. Multi-segment duties interpolate linearly from an estimated
// duty-start performance down to the final landing score, proportional to
// each segment's fractional elapsed time since report. Backend-supplied
// per-segment figures are never overwritten.
func (m *Mapper) fillSegmentPerformance(d *roster.Duty, p *fatigueapi.DutyPayload) {
	if len(d.Segments) == 0 {
		return
	}
	if len(d.Segments) == 1 {
		if p.Segments[0].Performance != nil {
			d.Segments[0].Performance = clamp01to100(*p.Segments[0].Performance)
		} else {
			d.Segments[0].Performance = d.AvgPerformance
		}
		return
	}

	elapsed, total, ok := m.segmentElapsedHours(d, p)
	if !ok {
		// No parseable timestamps anywhere: every estimated segment repeats
		// the duty average rather than failing the transform.
		m.logger.Warn("no usable segment timing, repeating duty average", "duty", d.ID)
		for i := range d.Segments {
			if p.Segments[i].Performance != nil {
				d.Segments[i].Performance = clamp01to100(*p.Segments[i].Performance)
			} else {
				d.Segments[i].Performance = d.AvgPerformance
			}
		}
		return
	}

	estStart := min(100, d.AvgPerformance+0.5*(d.AvgPerformance-d.LandingPerformance))
	for i := range d.Segments {
		if p.Segments[i].Performance != nil {
			d.Segments[i].Performance = clamp01to100(*p.Segments[i].Performance)
			continue
		}
		fraction := 0.0
		if total > 0 {
			fraction = elapsed[i] / total
		}
		if fraction > 1 {
			fraction = 1
		}
		perf := estStart + (d.LandingPerformance-estStart)*fraction
		d.Segments[i].Performance = clamp01to100(perf)
	}
}

// segmentElapsedHours computes each segment's elapsed time since report from
// its arrival timestamp, falling back to accumulated nominal block time plus
// turnaround when arrivals are unparseable. Returns ok=false only when no
// segment yields a usable elapsed time.
func (m *Mapper) segmentElapsedHours(d *roster.Duty, p *fatigueapi.DutyPayload) (elapsed []float64, total float64, ok bool) {
	reportT, reportErr := time.Parse(time.RFC3339, d.ReportUTC)

	elapsed = make([]float64, len(d.Segments))
	accumulated := 0.0
	anyBlock := false
	anyUsable := false
	for i := range d.Segments {
		if d.Segments[i].BlockHours > 0 {
			anyBlock = true
		}
		accumulated += d.Segments[i].BlockHours
		if i > 0 {
			accumulated += TurnaroundHours
		}

		if reportErr == nil {
			if arrT, err := time.Parse(time.RFC3339, p.Segments[i].ArrivalTimeUTC); err == nil && arrT.After(reportT) {
				elapsed[i] = arrT.Sub(reportT).Hours()
				anyUsable = true
				continue
			}
		}
		// Turnaround padding alone is not evidence of timing; some real
		// block time must back the accumulated estimate.
		if anyBlock {
			elapsed[i] = accumulated
			anyUsable = true
		}
	}
	if !anyUsable {
		return nil, 0, false
	}

	total = d.DutyHours
	if total <= 0 {
		total = elapsed[len(elapsed)-1]
	}
	return elapsed, total, true
}

func mapSleepEstimate(s *fatigueapi.SleepEstimatePayload) *roster.SleepEstimate {
	out := &roster.SleepEstimate{
		StartUTC:       s.StartUTC,
		EndUTC:         s.EndUTC,
		StartLocal:     s.StartLocal,
		EndLocal:       s.EndLocal,
		Type:           s.SleepType,
		TotalHours:     s.TotalSleepHours,
		EffectiveHours: s.EffectiveSleepHours,
		Efficiency:     s.SleepEfficiency,
		WOCLOverlap:    s.WOCLOverlapHours,
		Strategy:       s.Strategy,
		Confidence:     s.Confidence,
	}
	for _, f := range s.QualityFactors {
		out.Factors = append(out.Factors, roster.QualityFactor{
			Name:     f.Name,
			Value:    f.Value,
			Citation: f.Citation,
		})
	}
	return out
}

// MapDutyTimeline converts a duty drill-down response.
func MapDutyTimeline(resp *fatigueapi.DutyTimelineResponse) *roster.DutyTimeline {
	if resp == nil {
		return nil
	}
	out := &roster.DutyTimeline{
		Summary: roster.DutyTimelineSummary{
			MinPerformance:     resp.Summary.MinPerformance,
			AvgPerformance:     resp.Summary.AvgPerformance,
			LandingPerformance: resp.Summary.LandingPerformance,
			WOCLHours:          resp.Summary.WOCLHours,
			PriorSleep:         resp.Summary.PriorSleepHours,
			SleepDebt:          resp.Summary.SleepDebtHours,
		},
	}
	out.Samples = make([]roster.TimelineSample, 0, len(resp.Samples))
	for _, s := range resp.Samples {
		out.Samples = append(out.Samples, roster.TimelineSample{
			Timestamp:     s.Timestamp,
			Performance:   s.Performance,
			SleepPressure: s.SleepPressure,
			Circadian:     s.Circadian,
			SleepInertia:  s.SleepInertia,
			HoursOnDuty:   s.HoursOnDuty,
			FlightPhase:   s.FlightPhase,
			IsCritical:    s.IsCritical,
			IsInRest:      s.IsInRest,
		})
	}
	return out
}

// MapAirports converts airport lookup payloads.
func MapAirports(payloads []fatigueapi.AirportPayload) []roster.AirportInfo {
	out := make([]roster.AirportInfo, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, roster.AirportInfo{
			Code:           p.Code,
			Timezone:       p.Timezone,
			UTCOffsetHours: p.UTCOffsetHours,
			Latitude:       p.Latitude,
			Longitude:      p.Longitude,
		})
	}
	return out
}

func clamp01to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
