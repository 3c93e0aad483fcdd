package fatigueapi

// Wire-format payloads returned by the remote analysis service. Field names
// mirror the service's snake_case JSON exactly; mapping into the domain
// model lives in pkg/transform.

// AnalysisResponse is the body of POST /api/analyze.
type AnalysisResponse struct {
	AnalysisID        string                `json:"analysis_id"`
	PilotID           string                `json:"pilot_id"`
	PilotName         string                `json:"pilot_name,omitempty"`
	HomeBase          string                `json:"home_base"`
	HomeBaseTimezone  string                `json:"home_base_timezone"`
	Month             string                `json:"month"`
	Stats             StatsPayload          `json:"stats"`
	Duties            []DutyPayload         `json:"duties"`
	RestDaysSleep     []RestDaySleepPayload `json:"rest_days_sleep,omitempty"`
	BodyClockTimeline []BodyClockPayload    `json:"body_clock_timeline,omitempty"`
}

// StatsPayload aggregates the analyzed month.
type StatsPayload struct {
	TotalDuties     int     `json:"total_duties"`
	TotalBlockHours float64 `json:"total_block_hours"`
	TotalDutyHours  float64 `json:"total_duty_hours"`
	AvgPerformance  float64 `json:"avg_performance"`
	MinPerformance  float64 `json:"min_performance"`
	HighRiskDuties  int     `json:"high_risk_duties"`
	TotalSleepDebt  float64 `json:"total_sleep_debt_hours"`
}

// DutyPayload is one duty in the analysis response.
type DutyPayload struct {
	DutyID             string                `json:"duty_id"`
	Date               string                `json:"date"`
	ReportTimeUTC      string                `json:"report_time_utc"`
	ReleaseTimeUTC     string                `json:"release_time_utc"`
	ReportTimeLocal    string                `json:"report_time_local,omitempty"`
	ReleaseTimeLocal   string                `json:"release_time_local,omitempty"`
	DutyHours          float64               `json:"duty_hours"`
	Segments           []SegmentPayload      `json:"segments"`
	MinPerformance     float64               `json:"min_performance"`
	AvgPerformance     float64               `json:"avg_performance"`
	LandingPerformance *float64              `json:"landing_performance,omitempty"`
	SleepDebtHours     float64               `json:"sleep_debt_hours"`
	PriorSleepHours    float64               `json:"prior_sleep_hours"`
	WOCLHours          float64               `json:"wocl_hours"`
	RiskLevel          string                `json:"risk_level"`
	SleepEstimate      *SleepEstimatePayload `json:"sleep_estimate,omitempty"`
	Crew               *CrewPayload          `json:"crew,omitempty"`
}

// SegmentPayload is one flight leg. Local clock fields are "HH:MM" strings
// in the named airport's zone; UTC fields are full ISO timestamps.
type SegmentPayload struct {
	FlightNumber       string   `json:"flight_number"`
	Departure          string   `json:"departure"`
	Arrival            string   `json:"arrival"`
	DepartureTimeUTC   string   `json:"departure_time_utc,omitempty"`
	ArrivalTimeUTC     string   `json:"arrival_time_utc,omitempty"`
	DepartureTimeLocal string   `json:"departure_time_local,omitempty"`
	ArrivalTimeLocal   string   `json:"arrival_time_local,omitempty"`
	DepartureTimeHome  string   `json:"departure_time_home,omitempty"`
	ArrivalTimeHome    string   `json:"arrival_time_home,omitempty"`
	DepartureTimezone  string   `json:"departure_timezone,omitempty"`
	ArrivalTimezone    string   `json:"arrival_timezone,omitempty"`
	DepartureUTCOffset float64  `json:"departure_utc_offset,omitempty"`
	ArrivalUTCOffset   float64  `json:"arrival_utc_offset,omitempty"`
	BlockHours         *float64 `json:"block_hours,omitempty"`
	Performance        *float64 `json:"performance,omitempty"`
}

// SleepEstimatePayload is a modeled rest period attached to a duty or a rest day.
type SleepEstimatePayload struct {
	StartUTC            string                 `json:"start_utc"`
	EndUTC              string                 `json:"end_utc"`
	StartLocal          string                 `json:"start_local,omitempty"`
	EndLocal            string                 `json:"end_local,omitempty"`
	SleepType           string                 `json:"sleep_type"`
	TotalSleepHours     float64                `json:"total_sleep_hours"`
	EffectiveSleepHours float64                `json:"effective_sleep_hours"`
	SleepEfficiency     float64                `json:"sleep_efficiency"`
	WOCLOverlapHours    float64                `json:"wocl_overlap_hours"`
	Strategy            string                 `json:"strategy,omitempty"`
	Confidence          float64                `json:"confidence"`
	QualityFactors      []QualityFactorPayload `json:"quality_factors,omitempty"`
}

// QualityFactorPayload is one multiplicative sleep-quality factor.
type QualityFactorPayload struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Citation string  `json:"citation,omitempty"`
}

// CrewPayload carries augmentation/ULR metadata.
type CrewPayload struct {
	Augmented         bool   `json:"augmented"`
	CrewSize          int    `json:"crew_size,omitempty"`
	RestFacilityClass string `json:"rest_facility_class,omitempty"`
	ULR               bool   `json:"ulr"`
}

// RestDaySleepPayload is a modeled sleep period on a day with no duty.
type RestDaySleepPayload struct {
	Date  string               `json:"date"`
	Sleep SleepEstimatePayload `json:"sleep"`
}

// BodyClockPayload is one roster-wide body-clock sample.
type BodyClockPayload struct {
	TimeUTC           string  `json:"timestamp"`
	PhaseShiftHours   float64 `json:"phase_shift_hours"`
	ReferenceTimezone string  `json:"reference_timezone"`
}

// DutyTimelineResponse is the body of GET /api/duty/{analysisID}/{dutyID}:
// five-minute-resolution samples plus a summary block.
type DutyTimelineResponse struct {
	DutyID  string                 `json:"duty_id"`
	Samples []SamplePayload        `json:"samples"`
	Summary TimelineSummaryPayload `json:"summary"`
}

// SamplePayload is one five-minute sample.
type SamplePayload struct {
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

// TimelineSummaryPayload aggregates a duty drill-down.
type TimelineSummaryPayload struct {
	MinPerformance     float64 `json:"min_performance"`
	AvgPerformance     float64 `json:"avg_performance"`
	LandingPerformance float64 `json:"landing_performance"`
	WOCLHours          float64 `json:"wocl_hours"`
	PriorSleepHours    float64 `json:"prior_sleep_hours"`
	SleepDebtHours     float64 `json:"sleep_debt_hours"`
}

// AirportPayload is one airport lookup result from POST /api/airports/batch.
type AirportPayload struct {
	Code           string  `json:"code"`
	Timezone       string  `json:"timezone"`
	UTCOffsetHours float64 `json:"utc_offset_hours"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// AnalyzeRequest carries everything POST /api/analyze needs.
type AnalyzeRequest struct {
	RosterFilename string
	Roster         []byte
	PilotID        string
	HomeBase       string
	ConfigPreset   string
	CrewSet        string
	// CrewOverrides maps duty ID to a crew-set name; marshaled as JSON into
	// the multipart form when non-empty.
	CrewOverrides map[string]string
}
