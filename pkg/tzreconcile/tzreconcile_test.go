package tzreconcile

import (
	"fmt"
	"math"
	"testing"
	"time"
)

func TestUTCToTimezone(t *testing.T) {
	c := NewConverter(nil)

	tests := []struct {
		name     string
		isoUTC   string
		tz       string
		wantDate string
		wantHHMM string
		wantHour float64
	}{
		{"winter New York", "2026-02-10T06:00:00Z", "America/New_York", "2026-02-10", "01:00", 1.0},
		{"summer New York DST", "2026-07-10T06:00:00Z", "America/New_York", "2026-07-10", "02:00", 2.0},
		{"Dubai half past", "2026-02-10T09:30:00Z", "Asia/Dubai", "2026-02-10", "13:30", 13.5},
		{"Auckland crosses date line", "2026-02-10T22:00:00Z", "Pacific/Auckland", "2026-02-11", "11:00", 11.0},
		{"UTC identity", "2026-02-10T14:45:00Z", "UTC", "2026-02-10", "14:45", 14.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.UTCToTimezone(tt.isoUTC, tt.tz)
			if !got.Valid {
				t.Fatalf("UTCToTimezone(%q, %q) not valid", tt.isoUTC, tt.tz)
			}
			if got.Date != tt.wantDate || got.HHMM != tt.wantHHMM {
				t.Errorf("got %s %s, want %s %s", got.Date, got.HHMM, tt.wantDate, tt.wantHHMM)
			}
			if math.Abs(got.Hour-tt.wantHour) > 0.001 {
				t.Errorf("Hour = %v, want %v", got.Hour, tt.wantHour)
			}
		})
	}
}

func TestUTCToTimezoneDegradation(t *testing.T) {
	c := NewConverter(nil)

	tests := []struct {
		name   string
		isoUTC string
		tz     string
	}{
		{"garbage timestamp", "not-a-time", "America/New_York"},
		{"empty timestamp", "", "America/New_York"},
		{"unknown zone", "2026-02-10T06:00:00Z", "Mars/Olympus_Mons"},
		{"missing offset", "2026-02-10 06:00", "UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.UTCToTimezone(tt.isoUTC, tt.tz)
			if got.Valid {
				t.Fatalf("expected invalid result for %q/%q", tt.isoUTC, tt.tz)
			}
			if !math.IsNaN(got.Hour) {
				t.Errorf("Hour = %v, want NaN", got.Hour)
			}
			if got.Date != "" || got.HHMM != "" {
				t.Errorf("expected empty string fields, got %q %q", got.Date, got.HHMM)
			}
		})
	}
}

// Round-trip property: reconstructing an instant from the civil fields must
// land on the original instant, accepting either valid offset inside a DST
// transition window.
func TestUTCToTimezoneRoundTrip(t *testing.T) {
	c := NewConverter(nil)

	zones := []string{
		"UTC", "America/New_York", "America/Los_Angeles", "Europe/London",
		"Europe/Berlin", "Asia/Dubai", "Asia/Singapore", "Pacific/Auckland",
		"Asia/Kolkata", // half-hour offset
	}
	instants := []string{
		"2026-01-15T03:20:00Z",
		"2026-03-08T09:30:00Z", // US spring-forward day
		"2026-06-21T18:05:00Z",
		"2026-11-01T06:00:00Z", // US fall-back day
		"2026-12-31T23:55:00Z",
	}

	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			t.Fatalf("LoadLocation(%q): %v", zone, err)
		}
		for _, iso := range instants {
			want, err := time.Parse(time.RFC3339, iso)
			if err != nil {
				t.Fatalf("parse %q: %v", iso, err)
			}
			ct := c.UTCToTimezone(iso, zone)
			if !ct.Valid {
				t.Fatalf("conversion invalid for %s in %s", iso, zone)
			}
			hh := int(ct.Hour)
			mm := int(math.Round((ct.Hour - float64(hh)) * 60))
			rebuilt := time.Date(ct.Year, time.Month(ct.Month), ct.Day, hh, mm, 0, 0, loc)
			diff := rebuilt.Sub(want).Abs()
			// Inside a DST transition the civil time is ambiguous; either of
			// the two valid offsets is acceptable.
			if diff != 0 && diff != time.Hour {
				t.Errorf("round trip %s in %s: rebuilt %v, want %v (diff %v)",
					iso, zone, rebuilt.UTC(), want, diff)
			}
		}
	}
}

func TestUTCToZulu(t *testing.T) {
	tests := []struct {
		isoUTC string
		want   string
	}{
		{"2026-02-10T06:00:00Z", "06:00Z"},
		{"2026-02-10T23:45:00Z", "23:45Z"},
		{"2026-02-10T08:15:00+02:00", "06:15Z"},
		{"bogus", ""},
	}

	for _, tt := range tests {
		if got := UTCToZulu(tt.isoUTC); got != tt.want {
			t.Errorf("UTCToZulu(%q) = %q, want %q", tt.isoUTC, got, tt.want)
		}
	}
}

func TestUTCDayHour(t *testing.T) {
	day, hour := UTCDayHour("2026-02-10T10:48:00Z")
	if day != 10 {
		t.Errorf("day = %d, want 10", day)
	}
	if math.Abs(hour-10.8) > 0.001 {
		t.Errorf("hour = %v, want 10.8", hour)
	}

	day, hour = UTCDayHour("junk")
	if day != 0 || !math.IsNaN(hour) {
		t.Errorf("degraded result = (%d, %v), want (0, NaN)", day, hour)
	}
}

func TestAcclimatizedTimezone(t *testing.T) {
	const (
		home = "Europe/London"
		away = "Asia/Singapore"
	)

	tests := []struct {
		name  string
		hours float64
		state string
		want  string
	}{
		{"fresh departure anchors home", 2.0, "", home},
		{"47.9h still home", 47.9, "", home},
		{"47.9h home even when backend asserts", 47.9, StateAcclimatized, home},
		{"exactly 48h flips to location", 48.0, "", away},
		{"exactly 48h with assertion flips", 48.0, StateAcclimatized, away},
		{"48.1h asserted acclimatized", 48.1, StateAcclimatized, away},
		{"long layover without assertion", 90.0, "", away},
		{"unknown backend state falls through", 60.0, "shifting", away},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AcclimatizedTimezone(AcclimatizationContext{
				HoursAwayFromBase: tt.hours,
				BackendState:      tt.state,
				LocationTimezone:  away,
				HomeTimezone:      home,
			})
			if got != tt.want {
				t.Errorf("AcclimatizedTimezone(%.1fh, %q) = %q, want %q",
					tt.hours, tt.state, got, tt.want)
			}
		})
	}
}

func TestBuildTripleTime(t *testing.T) {
	c := NewConverter(nil)
	const iso = "2026-02-10T12:00:00Z"

	t.Run("not yet acclimatized shows home ref", func(t *testing.T) {
		tt := c.BuildTripleTime(iso, AcclimatizationContext{
			HoursAwayFromBase: 20,
			LocationTimezone:  "Asia/Singapore",
			HomeTimezone:      "Europe/London",
		})
		if !tt.LocalIsHomeRef {
			t.Fatal("expected LocalIsHomeRef")
		}
		if tt.Zulu != "12:00Z" {
			t.Errorf("Zulu = %q", tt.Zulu)
		}
		if tt.Local != "12:00 (home ref)" {
			t.Errorf("Local = %q, want home time with (home ref)", tt.Local)
		}
		if tt.Home != "12:00 Europe/London" {
			t.Errorf("Home = %q", tt.Home)
		}
	})

	t.Run("acclimatized shows foreign clock", func(t *testing.T) {
		tt := c.BuildTripleTime(iso, AcclimatizationContext{
			HoursAwayFromBase: 72,
			LocationTimezone:  "Asia/Singapore",
			HomeTimezone:      "Europe/London",
		})
		if tt.LocalIsHomeRef {
			t.Fatal("did not expect LocalIsHomeRef")
		}
		if tt.Local != "20:00 Asia/Singapore" {
			t.Errorf("Local = %q", tt.Local)
		}
	})

	t.Run("at home base no annotation", func(t *testing.T) {
		tt := c.BuildTripleTime(iso, AcclimatizationContext{
			HoursAwayFromBase: 0,
			LocationTimezone:  "Europe/London",
			HomeTimezone:      "Europe/London",
		})
		if tt.LocalIsHomeRef {
			t.Fatal("home base should not read as home ref")
		}
		if tt.Local != "12:00 Europe/London" {
			t.Errorf("Local = %q", tt.Local)
		}
	})
}

// The converter is shared across analysis sessions; concurrent lookups over
// the same small zone key space must be safe.
func TestConverterConcurrent(t *testing.T) {
	c := NewConverter(nil)
	zones := []string{"UTC", "America/New_York", "Asia/Tokyo", "Europe/Paris"}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				iso := fmt.Sprintf("2026-02-%02dT%02d:00:00Z", 1+(j%28), j%24)
				ct := c.UTCToTimezone(iso, zones[(n+j)%len(zones)])
				if !ct.Valid {
					t.Errorf("unexpected invalid conversion for %s", iso)
					return
				}
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
