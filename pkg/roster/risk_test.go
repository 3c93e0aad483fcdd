package roster

import "testing"

func TestRiskFromPerformance(t *testing.T) {
	tests := []struct {
		name string
		perf float64
		want RiskLevel
	}{
		{"zero is critical", 0, RiskCritical},
		{"just below critical boundary", 54.9, RiskCritical},
		{"critical boundary is high", 55.0, RiskHigh},
		{"just below high boundary", 64.9, RiskHigh},
		{"high boundary is moderate", 65.0, RiskModerate},
		{"just below moderate boundary", 74.9, RiskModerate},
		{"moderate boundary is low", 75.0, RiskLow},
		{"perfect score is low", 100, RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskFromPerformance(tt.perf); got != tt.want {
				t.Errorf("RiskFromPerformance(%v) = %v, want %v", tt.perf, got, tt.want)
			}
		})
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		name string
		s    string
		perf float64
		want RiskLevel
	}{
		{"backend classification wins", "EXTREME", 90, RiskExtreme},
		{"known level passes through", "MODERATE", 90, RiskModerate},
		{"unknown string derives from score", "severe", 50, RiskCritical},
		{"empty string derives from score", "", 80, RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRiskLevel(tt.s, tt.perf); got != tt.want {
				t.Errorf("ParseRiskLevel(%q, %v) = %v, want %v", tt.s, tt.perf, got, tt.want)
			}
		})
	}
}
