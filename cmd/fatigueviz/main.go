// Package main implements the fatigueviz CLI: submit a roster for fatigue
// analysis and render the month overview in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/aeroviz-dev/fatigueviz/pkg/chart"
	"github.com/aeroviz-dev/fatigueviz/pkg/config"
	"github.com/aeroviz-dev/fatigueviz/pkg/fatigueapi"
	"github.com/aeroviz-dev/fatigueviz/pkg/httpcache"
	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
	"github.com/aeroviz-dev/fatigueviz/pkg/settings"
	"github.com/aeroviz-dev/fatigueviz/pkg/timeline"
	"github.com/aeroviz-dev/fatigueviz/pkg/transform"
	"github.com/aeroviz-dev/fatigueviz/pkg/tzreconcile"
)

var (
	pilotID      = flag.String("pilot", "", "Pilot ID (or last used)")
	homeBase     = flag.String("home-base", "", "Home base IATA code (or last used)")
	serviceURL   = flag.String("service-url", "", "Analysis service base URL (or FATIGUEVIZ_SERVICE_URL)")
	serviceToken = flag.String("token", "", "Bearer token for the analysis service")
	preset       = flag.String("preset", "", "Regulatory config preset")
	crewSet      = flag.String("crew-set", "", "Default crew set for all duties")
	showStrip    = flag.Bool("strip", false, "Also print the compact timeline strip")
	noCache      = flag.Bool("no-cache", false, "Disable response caching")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("fatigueviz CLI v1.3.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <roster-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	rosterPath := args[0]

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, rosterPath); err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, rosterPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := settings.NewStore(logger, "")
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	saved, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	// Flags win over saved settings, saved settings over config defaults.
	if *pilotID == "" {
		*pilotID = saved.PilotID
	}
	if *homeBase == "" {
		*homeBase = saved.HomeBase
	}
	if *preset == "" {
		*preset = firstNonEmpty(saved.ConfigPreset, cfg.ConfigPreset)
	}
	if *crewSet == "" {
		*crewSet = saved.CrewSet
	}
	if *serviceURL == "" {
		*serviceURL = firstNonEmpty(saved.ServiceURL, cfg.ServiceURL)
	}
	if *serviceToken == "" {
		*serviceToken = cfg.ServiceToken
	}

	rosterData, err := os.ReadFile(rosterPath)
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}

	opts := []fatigueapi.Option{fatigueapi.WithToken(*serviceToken)}
	if !*noCache {
		cached := httpcache.NewClient(httpcache.New(cfg.CacheTTL, logger), nil, logger)
		opts = append(opts, fatigueapi.WithHTTPDo(cached.Do))
	}
	client := fatigueapi.NewClient(logger, *serviceURL, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	runID := uuid.NewString()
	logger.Info("submitting roster", "run_id", runID, "roster", rosterPath, "pilot", *pilotID)

	resp, err := client.Analyze(ctx, fatigueapi.AnalyzeRequest{
		RosterFilename: filepath.Base(rosterPath),
		Roster:         rosterData,
		PilotID:        *pilotID,
		HomeBase:       *homeBase,
		ConfigPreset:   *preset,
		CrewSet:        *crewSet,
		CrewOverrides:  saved.CrewOverrides,
	})
	if err != nil {
		return err
	}

	results, err := transform.NewMapper(logger).MapAnalysis(resp)
	if err != nil {
		return fmt.Errorf("mapping analysis: %w", err)
	}

	if cfg.HomeTimezone != "" {
		results.HomeTimezone = cfg.HomeTimezone
	}
	enrichSegmentClocks(ctx, logger, client, results)

	month, err := time.Parse("2006-01", results.Month)
	if err != nil {
		logger.Warn("unparseable month in response, using current month", "month", results.Month)
		month = time.Now().UTC()
	}
	built := timeline.NewBuilder(cfg.TimelineConfig(), logger).Build(timeline.BuildInput{
		Duties:   results.Duties,
		RestDays: results.RestDays,
		Month:    month,
	})

	fmt.Print(chart.RenderMonth(results))
	if *showStrip {
		fmt.Print(chart.RenderTimeline(built.Points))
	}

	saved.PilotID = *pilotID
	saved.HomeBase = *homeBase
	saved.HomeTimezone = results.HomeTimezone
	saved.ConfigPreset = *preset
	saved.CrewSet = *crewSet
	saved.ServiceURL = *serviceURL
	saved.LastRosterDir = filepath.Dir(rosterPath)
	if err := store.Save(saved); err != nil {
		logger.Warn("failed to save settings", "error", err)
	}
	return nil
}

// enrichSegmentClocks resolves airport timezones and fills the local and
// home-base clock strings for every segment. Lookup failure leaves the wire
// values in place; the overview renders without local clocks.
func enrichSegmentClocks(ctx context.Context, logger *slog.Logger, client *fatigueapi.Client, results *roster.AnalysisResults) {
	codes := map[string]bool{}
	for i := range results.Duties {
		for _, seg := range results.Duties[i].Segments {
			if seg.Departure != "" {
				codes[seg.Departure] = true
			}
			if seg.Arrival != "" {
				codes[seg.Arrival] = true
			}
		}
	}
	if len(codes) == 0 {
		return
	}

	batch := make([]string, 0, len(codes))
	for code := range codes {
		batch = append(batch, code)
	}
	payloads, err := client.AirportBatch(ctx, batch)
	if err != nil {
		logger.Warn("airport lookup failed, skipping local clocks", "error", err)
		return
	}
	airports := map[string]roster.AirportInfo{}
	for _, a := range transform.MapAirports(payloads) {
		airports[a.Code] = a
	}

	conv := tzreconcile.NewConverter(logger)
	for i := range results.Duties {
		d := &results.Duties[i]
		for j := range d.Segments {
			seg := &d.Segments[j]
			if dep, ok := airports[seg.Departure]; ok {
				seg.DepartureTimezone = dep.Timezone
				seg.DepartureUTCOffset = dep.UTCOffsetHours
				if ct := conv.UTCToTimezone(seg.DepartureUTC, dep.Timezone); ct.Valid {
					seg.DepartureLocal = ct.HHMM
				}
			}
			if arr, ok := airports[seg.Arrival]; ok {
				seg.ArrivalTimezone = arr.Timezone
				seg.ArrivalUTCOffset = arr.UTCOffsetHours
				if ct := conv.UTCToTimezone(seg.ArrivalUTC, arr.Timezone); ct.Valid {
					seg.ArrivalLocal = ct.HHMM
				}
			}
			if ct := conv.UTCToTimezone(seg.DepartureUTC, results.HomeTimezone); ct.Valid {
				seg.DepartureHome = ct.HHMM
			}
			if ct := conv.UTCToTimezone(seg.ArrivalUTC, results.HomeTimezone); ct.Valid {
				seg.ArrivalHome = ct.HHMM
			}
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
