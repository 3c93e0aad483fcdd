package timeline

import "time"

// Config holds every tuned constant of the coarse synthesis and recovery
// heuristics. These values are visual approximations, not model output, and
// are exposed for tuning rather than hard-coded.
type Config struct {
	// PreReportLead is how far before report time the transition point sits.
	PreReportLead time.Duration
	// PreReportCeilingBonus caps the transition point at avg+bonus.
	PreReportCeilingBonus float64
	// NadirFraction places the mid-duty low point as a fraction of elapsed duty time.
	NadirFraction float64
	// LandingFraction places the near-end landing point.
	LandingFraction float64
	// ReleaseDrop is subtracted from avg performance at the release point.
	ReleaseDrop float64

	// RecoveryGapMin is the minimum release-to-next-report gap that earns a
	// synthesized recovery arc.
	RecoveryGapMin time.Duration
	// WindDownDelay places the post-duty wind-down point after release.
	WindDownDelay time.Duration
	// WindDownDrop is subtracted from avg performance at the wind-down point.
	WindDownDrop float64
	// RecoveryRateMin/Max bound the recovery slope in performance points per
	// gap hour; sleep efficiency interpolates between them.
	RecoveryRateMin float64
	RecoveryRateMax float64
	// RecoveryLead places the post-sleep recovery point before the next report.
	RecoveryLead time.Duration
	// RecoveryPerformanceCap and RecoveryReservoirCap keep synthesized
	// recovery from implying a guaranteed full bodily reset.
	RecoveryPerformanceCap float64
	RecoveryReservoirCap   float64

	// BaselinePerformance/Reservoir are the rested bracketing values at the
	// month edges.
	BaselinePerformance float64
	BaselineReservoir   float64
	// TrailingGapMin is how far before month end the last release must fall
	// for a trailing baseline point to be appended.
	TrailingGapMin time.Duration

	// Reservoir proxy: 100 - sleepDebt*ReservoirDebtSlope, clamped to
	// [ReservoirFloor, ReservoirCeiling].
	ReservoirFloor     float64
	ReservoirCeiling   float64
	ReservoirDebtSlope float64
}

// DefaultConfig returns the hand-tuned defaults.
func DefaultConfig() Config {
	return Config{
		PreReportLead:          30 * time.Minute,
		PreReportCeilingBonus:  3,
		NadirFraction:          0.60,
		LandingFraction:        0.85,
		ReleaseDrop:            2,
		RecoveryGapMin:         2 * time.Hour,
		WindDownDelay:          2 * time.Hour,
		WindDownDrop:           5,
		RecoveryRateMin:        3,
		RecoveryRateMax:        8,
		RecoveryLead:           time.Hour,
		RecoveryPerformanceCap: 97,
		RecoveryReservoirCap:   98,
		BaselinePerformance:    92,
		BaselineReservoir:      95,
		TrailingGapMin:         12 * time.Hour,
		ReservoirFloor:         50,
		ReservoirCeiling:       100,
		ReservoirDebtSlope:     6.25,
	}
}
