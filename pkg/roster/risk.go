package roster

// Performance thresholds below which a score is classified at each level.
// Every client-side risk label in the system comes through RiskFromPerformance
// so that points produced by different code paths never disagree.
const (
	CriticalBelow = 55.0
	HighBelow     = 65.0
	ModerateBelow = 75.0
)

// RiskFromPerformance derives a risk label from a raw performance score.
func RiskFromPerformance(p float64) RiskLevel {
	switch {
	case p < CriticalBelow:
		return RiskCritical
	case p < HighBelow:
		return RiskHigh
	case p < ModerateBelow:
		return RiskModerate
	default:
		return RiskLow
	}
}

// ParseRiskLevel normalizes a backend-supplied risk string, falling back to
// score derivation when the string is not one of the known levels.
func ParseRiskLevel(s string, performance float64) RiskLevel {
	switch RiskLevel(s) {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical, RiskExtreme:
		return RiskLevel(s)
	default:
		return RiskFromPerformance(performance)
	}
}
