// Package tzreconcile converts UTC instants into civil time in any IANA
// timezone and decides which zone a pilot's body clock currently tracks.
// ALL timestamps in the codebase are stored in UTC; these functions exist for
// display and for the acclimatization decision only.
//
// Conversions go through Go's IANA timezone database (time.LoadLocation),
// never manual offset arithmetic, so they stay correct across DST
// transitions. Binaries should import _ "time/tzdata" to avoid depending on
// the host's zoneinfo install.
package tzreconcile

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/maypok86/otter/v2"
)

// AcclimatizationHours is the elapsed time away from home base after which a
// pilot's body clock is considered shifted to local time (EASA ORO.FTL.105).
const AcclimatizationHours = 48.0

// StateAcclimatized is the backend assertion that a pilot has acclimatized.
const StateAcclimatized = "acclimatized"

// CivilTime is a UTC instant expressed in some timezone's civil clock.
// When Valid is false the input did not parse: Hour is NaN and the string
// fields are empty. Callers must check Valid before use.
type CivilTime struct {
	Date  string  // "2006-01-02"
	HHMM  string  // "15:04"
	Hour  float64 // decimal hour, e.g. 14.5 for 14:30
	Day   int
	Month int
	Year  int
	Valid bool
}

// TripleTime is the three display clocks used everywhere in the UI.
type TripleTime struct {
	Zulu           string // "HH:mmZ"
	Local          string // acclimatization-aware local clock
	Home           string // home-base clock
	LocalIsHomeRef bool   // Local shows home time because the pilot is not yet acclimatized
}

// AcclimatizationContext carries the inputs of the acclimatization decision.
type AcclimatizationContext struct {
	HoursAwayFromBase float64
	BackendState      string // optional assertion from the analysis service
	LocationTimezone  string
	HomeTimezone      string
}

// Converter performs timezone lookups through a bounded location cache.
// It is an explicit object rather than package state so tests stay isolated
// and multiple analysis sessions can share one instance safely; the cache is
// append-only over the small IANA identifier key space.
type Converter struct {
	locs   *otter.Cache[string, *time.Location]
	logger *slog.Logger
}

// NewConverter creates a Converter. A nil logger discards debug output.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	locs := otter.Must(&otter.Options[string, *time.Location]{
		MaximumSize:     1024,
		InitialCapacity: 32,
	})
	return &Converter{locs: locs, logger: logger}
}

// location resolves an IANA zone identifier, caching the result.
func (c *Converter) location(name string) (*time.Location, error) {
	if loc, ok := c.locs.GetIfPresent(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", name, err)
	}
	c.locs.Set(name, loc)
	return loc, nil
}

// UTCToTimezone converts a UTC ISO-8601 timestamp into civil time in the
// given IANA zone. It never panics: unparseable input or an unknown zone
// yields a CivilTime with Valid false and Hour NaN, so one bad timestamp in
// a duty cannot abort building the rest of a month.
func (c *Converter) UTCToTimezone(isoUTC, ianaTZ string) CivilTime {
	t, err := time.Parse(time.RFC3339, isoUTC)
	if err != nil {
		c.logger.Debug("unparseable timestamp", "input", isoUTC, "error", err)
		return CivilTime{Hour: math.NaN()}
	}
	loc, err := c.location(ianaTZ)
	if err != nil {
		c.logger.Debug("unknown timezone", "timezone", ianaTZ, "error", err)
		return CivilTime{Hour: math.NaN()}
	}
	lt := t.In(loc)
	return CivilTime{
		Date:  lt.Format("2006-01-02"),
		HHMM:  lt.Format("15:04"),
		Hour:  float64(lt.Hour()) + float64(lt.Minute())/60.0,
		Day:   lt.Day(),
		Month: int(lt.Month()),
		Year:  lt.Year(),
		Valid: true,
	}
}

// UTCToZulu formats a UTC ISO-8601 timestamp as "HH:mmZ". Pure UTC component
// extraction, no timezone database involved. Unparseable input yields "".
func UTCToZulu(isoUTC string) string {
	t, err := time.Parse(time.RFC3339, isoUTC)
	if err != nil {
		return ""
	}
	return t.UTC().Format("15:04") + "Z"
}

// UTCDayHour returns the UTC day-of-month and decimal hour of a timestamp.
// Grid positioning uses this instead of a zone conversion so placement never
// depends on the timezone database or wobbles at midnight boundaries.
// Unparseable input yields (0, NaN).
func UTCDayHour(isoUTC string) (day int, hour float64) {
	t, err := time.Parse(time.RFC3339, isoUTC)
	if err != nil {
		return 0, math.NaN()
	}
	u := t.UTC()
	return u.Day(), float64(u.Hour()) + float64(u.Minute())/60.0
}

// AcclimatizedTimezone decides which zone the pilot's body clock tracks.
// Precedence: a backend "acclimatized" assertion with at least 48 elapsed
// hours picks the location zone; under 48 hours the body clock is still
// anchored to home base; at or past 48 hours without an assertion the
// location zone wins. The 48.0-hour boundary belongs to the >=48 branches.
func AcclimatizedTimezone(actx AcclimatizationContext) string {
	switch {
	case actx.BackendState == StateAcclimatized && actx.HoursAwayFromBase >= AcclimatizationHours:
		return actx.LocationTimezone
	case actx.HoursAwayFromBase < AcclimatizationHours:
		return actx.HomeTimezone
	default:
		return actx.LocationTimezone
	}
}

// BuildTripleTime composes the Zulu / local / home display strings for one
// instant. When the pilot is away from base but not yet acclimatized, Local
// shows home-base time annotated "(home ref)" instead of the foreign clock:
// a foreign local time under 48 hours would misrepresent what the pilot's
// body actually perceives.
func (c *Converter) BuildTripleTime(isoUTC string, actx AcclimatizationContext) TripleTime {
	tt := TripleTime{Zulu: UTCToZulu(isoUTC)}

	home := c.UTCToTimezone(isoUTC, actx.HomeTimezone)
	if home.Valid {
		tt.Home = home.HHMM + " " + actx.HomeTimezone
	}

	ref := AcclimatizedTimezone(actx)
	if ref == actx.HomeTimezone && actx.LocationTimezone != actx.HomeTimezone {
		tt.LocalIsHomeRef = true
		if home.Valid {
			tt.Local = home.HHMM + " (home ref)"
		}
		return tt
	}

	local := c.UTCToTimezone(isoUTC, ref)
	if local.Valid {
		tt.Local = local.HHMM + " " + ref
	}
	return tt
}
