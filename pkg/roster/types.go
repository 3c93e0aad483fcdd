// Package roster defines the domain model for pilot fatigue analysis results:
// duties, flight segments, modeled sleep, and the chart-ready timeline shapes
// produced from them.
package roster

// RiskLevel classifies fatigue risk for a duty or a single timeline point.
type RiskLevel string

// Risk classifications, ordered from least to most severe. RiskExtreme only
// arrives pre-classified from the analysis service; client-side derivation
// never produces it.
const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
	RiskExtreme  RiskLevel = "EXTREME"
)

// FlightSegment is one takeoff-to-landing leg within a duty. Departure and
// arrival clocks carry three representations: UTC Zulu, home-base local, and
// airport local, alongside each airport's IANA zone and UTC offset.
type FlightSegment struct {
	FlightNumber       string  `json:"flight_number"`
	Departure          string  `json:"departure"`
	Arrival            string  `json:"arrival"`
	DepartureUTC       string  `json:"departure_utc"`
	ArrivalUTC         string  `json:"arrival_utc"`
	DepartureLocal     string  `json:"departure_local"`
	ArrivalLocal       string  `json:"arrival_local"`
	DepartureHome      string  `json:"departure_home"`
	ArrivalHome        string  `json:"arrival_home"`
	DepartureTimezone  string  `json:"departure_timezone"`
	ArrivalTimezone    string  `json:"arrival_timezone"`
	DepartureUTCOffset float64 `json:"departure_utc_offset"`
	ArrivalUTCOffset   float64 `json:"arrival_utc_offset"`
	BlockHours         float64 `json:"block_hours"`
	Performance        float64 `json:"performance"`
}

// QualityFactor is one multiplicative component of a sleep efficiency
// estimate, with the citation backing it.
type QualityFactor struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Citation string  `json:"citation,omitempty"`
}

// SleepEstimate is a modeled rest period. Efficiency is the product of the
// quality factors, clamped to [0.50, 1.00] by the analysis service; it is
// displayed as received and never re-derived here.
type SleepEstimate struct {
	StartUTC       string          `json:"start_utc"`
	EndUTC         string          `json:"end_utc"`
	StartLocal     string          `json:"start_local,omitempty"`
	EndLocal       string          `json:"end_local,omitempty"`
	Type           string          `json:"type"` // "main" or "nap"
	TotalHours     float64         `json:"total_hours"`
	EffectiveHours float64         `json:"effective_hours"`
	Efficiency     float64         `json:"efficiency"`
	WOCLOverlap    float64         `json:"wocl_overlap"`
	Strategy       string          `json:"strategy,omitempty"` // anchor, split, recovery, ...
	Confidence     float64         `json:"confidence"`
	Factors        []QualityFactor `json:"factors,omitempty"`
}

// CrewInfo carries crew-augmentation and ultra-long-range metadata for a duty.
type CrewInfo struct {
	Augmented         bool   `json:"augmented"`
	CrewSize          int    `json:"crew_size,omitempty"`
	RestFacilityClass string `json:"rest_facility_class,omitempty"`
	ULR               bool   `json:"ulr"`
}

// Duty is one flight or work period. Constructed once per analysis response
// and immutable thereafter; per-duty crew-set overrides live in a side map
// keyed by duty ID (see CrewOverrides), never on the duty itself.
type Duty struct {
	ID                 string          `json:"id"`
	Date               string          `json:"date"` // "2006-01-02"
	ReportUTC          string          `json:"report_utc"`
	ReleaseUTC         string          `json:"release_utc"`
	ReportLocal        string          `json:"report_local,omitempty"`
	ReleaseLocal       string          `json:"release_local,omitempty"`
	DutyHours          float64         `json:"duty_hours"`
	Segments           []FlightSegment `json:"segments"`
	MinPerformance     float64         `json:"min_performance"`
	AvgPerformance     float64         `json:"avg_performance"`
	LandingPerformance float64         `json:"landing_performance"`
	SleepDebt          float64         `json:"sleep_debt"`
	PriorSleep         float64         `json:"prior_sleep"`
	WOCLHours          float64         `json:"wocl_hours"`
	Risk               RiskLevel       `json:"risk"`
	Sleep              *SleepEstimate  `json:"sleep,omitempty"`
	Timeline           *DutyTimeline   `json:"timeline,omitempty"`
	Crew               *CrewInfo       `json:"crew,omitempty"`
}

// CrewOverrides maps duty ID to a UI-local crew-set selection. Attaching an
// override never mutates the duty it refers to.
type CrewOverrides map[string]string

// RestDaySleep is a modeled sleep period on a day with no duty.
type RestDaySleep struct {
	Date  string        `json:"date"`
	Sleep SleepEstimate `json:"sleep"`
}

// TimelineSample is one five-minute-resolution sample from the analysis
// service's per-duty drill-down.
type TimelineSample struct {
	Timestamp     string  `json:"timestamp"`
	Performance   float64 `json:"performance"`
	SleepPressure float64 `json:"sleep_pressure"`
	Circadian     float64 `json:"circadian"`
	SleepInertia  float64 `json:"sleep_inertia"`
	HoursOnDuty   float64 `json:"hours_on_duty"`
	FlightPhase   string  `json:"flight_phase,omitempty"`
	IsCritical    bool    `json:"is_critical"`
	IsInRest      bool    `json:"is_in_rest"`
}

// DutyTimelineSummary aggregates a high-resolution duty timeline.
type DutyTimelineSummary struct {
	MinPerformance     float64 `json:"min_performance"`
	AvgPerformance     float64 `json:"avg_performance"`
	LandingPerformance float64 `json:"landing_performance"`
	WOCLHours          float64 `json:"wocl_hours"`
	PriorSleep         float64 `json:"prior_sleep"`
	SleepDebt          float64 `json:"sleep_debt"`
}

// DutyTimeline holds the five-minute samples for one duty, present only when
// the user has drilled into it.
type DutyTimeline struct {
	Samples []TimelineSample    `json:"samples"`
	Summary DutyTimelineSummary `json:"summary"`
}

// TimelinePoint is one plotted sample on the continuous month timeline.
// Circadian, SleepPressure, SleepInertia, and FlightPhase are populated only
// for points emitted from a high-resolution duty timeline (HiRes true).
type TimelinePoint struct {
	TimeMs        int64     `json:"time_ms"`
	Performance   float64   `json:"performance"`
	Reservoir     float64   `json:"reservoir"`
	Circadian     float64   `json:"circadian,omitempty"`
	SleepPressure float64   `json:"sleep_pressure,omitempty"`
	SleepInertia  float64   `json:"sleep_inertia,omitempty"`
	FlightPhase   string    `json:"flight_phase,omitempty"`
	Phase         string    `json:"phase"` // duty, sleep, awake, rest
	Risk          RiskLevel `json:"risk"`
	DutyLabel     string    `json:"duty_label,omitempty"`
	FlightNumber  string    `json:"flight_number,omitempty"`
	Departure     string    `json:"departure,omitempty"`
	Arrival       string    `json:"arrival,omitempty"`
	HiRes         bool      `json:"hi_res,omitempty"`
}

// TimelineRegion is a start/end interval used to draw a background band.
// Regions may overlap across kinds but EndMs never precedes StartMs.
type TimelineRegion struct {
	StartMs int64     `json:"start_ms"`
	EndMs   int64     `json:"end_ms"`
	Kind    string    `json:"kind"` // "duty" or "sleep"
	Label   string    `json:"label,omitempty"`
	Risk    RiskLevel `json:"risk,omitempty"`
}

// Stats aggregates a month of duties.
type Stats struct {
	TotalDuties     int     `json:"total_duties"`
	TotalBlockHours float64 `json:"total_block_hours"`
	TotalDutyHours  float64 `json:"total_duty_hours"`
	AvgPerformance  float64 `json:"avg_performance"`
	MinPerformance  float64 `json:"min_performance"`
	HighRiskDuties  int     `json:"high_risk_duties"`
	TotalSleepDebt  float64 `json:"total_sleep_debt"`
}

// BodyClockSample is one point of the roster-wide body-clock track: how far
// the circadian phase has shifted and which zone the body currently tracks.
type BodyClockSample struct {
	TimeUTC           string  `json:"time_utc"`
	PhaseShiftHours   float64 `json:"phase_shift_hours"`
	ReferenceTimezone string  `json:"reference_timezone"`
}

// AnalysisResults is the domain-model view of one remote analysis response.
type AnalysisResults struct {
	AnalysisID   string            `json:"analysis_id"`
	PilotID      string            `json:"pilot_id"`
	PilotName    string            `json:"pilot_name,omitempty"`
	HomeBase     string            `json:"home_base"`
	HomeTimezone string            `json:"home_timezone"`
	Month        string            `json:"month"` // "2006-01"
	Stats        Stats             `json:"stats"`
	Duties       []Duty            `json:"duties"`
	RestDays     []RestDaySleep    `json:"rest_days,omitempty"`
	BodyClock    []BodyClockSample `json:"body_clock,omitempty"`
}

// AirportInfo is one airport-coordinate lookup result.
type AirportInfo struct {
	Code           string  `json:"code"`
	Timezone       string  `json:"timezone"`
	UTCOffsetHours float64 `json:"utc_offset_hours"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}
