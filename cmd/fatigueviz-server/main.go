// Package main implements the fatigueviz web server: it turns fatigue
// analysis payloads into chart-ready timeline JSON.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aeroviz-dev/fatigueviz/pkg/config"
	"github.com/aeroviz-dev/fatigueviz/pkg/fatigueapi"
	"github.com/aeroviz-dev/fatigueviz/pkg/roster"
	"github.com/aeroviz-dev/fatigueviz/pkg/timeline"
	"github.com/aeroviz-dev/fatigueviz/pkg/transform"
)

const maxBodyBytes = 8 << 20

var (
	addr    = flag.String("addr", "", "Listen address (or FATIGUEVIZ_ADDR)")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	version = flag.Bool("version", false, "Show version")
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fatigueviz_requests_total",
		Help: "HTTP requests by path and status.",
	}, []string{"path", "status"})
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fatigueviz_timeline_build_seconds",
		Help:    "Time spent mapping a payload and building its timeline.",
		Buckets: prometheus.DefBuckets,
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fatigueviz_timeline_cache_hits_total",
		Help: "Timeline responses served from the result cache.",
	})
)

type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{requests: make(map[string][]time.Time)}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	// 30 requests per minute per IP
	if len(valid) >= 30 {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("fatigueviz Server v1.3.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr == "" {
		*addr = cfg.Addr
	}

	logger.Info("Server configuration",
		"addr", *addr,
		"verbose", *verbose,
		"cache_ttl", cfg.CacheTTL,
		"has_service_url", cfg.ServiceURL != "",
		"has_service_token", cfg.ServiceToken != "")

	cache := otter.Must(&otter.Options[string, []byte]{
		MaximumSize:      10_000,
		InitialCapacity:  256,
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](cfg.CacheTTL),
	})

	srv := &server{
		logger:  logger,
		mapper:  transform.NewMapper(logger),
		builder: timeline.NewBuilder(cfg.TimelineConfig(), logger),
		cache:   cache,
		limiter: newRateLimiter(),
	}
	if cfg.ServiceURL != "" {
		srv.client = fatigueapi.NewClient(logger, cfg.ServiceURL,
			fatigueapi.WithToken(cfg.ServiceToken))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/timeline", srv.handleTimeline)
	mux.HandleFunc("GET /api/v1/duty/{analysisID}/{dutyID}", srv.handleDutyTimeline)
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", *addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
	logger.Info("Server stopped")
}

type server struct {
	logger  *slog.Logger
	mapper  *transform.Mapper
	builder *timeline.Builder
	client  *fatigueapi.Client
	cache   *otter.Cache[string, []byte]
	limiter *rateLimiter
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r),
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}

		handler.ServeHTTP(w, r)
	})
}

type timelineResponse struct {
	Results      *roster.AnalysisResults `json:"results"`
	Points       []roster.TimelinePoint  `json:"points"`
	DutyRegions  []roster.TimelineRegion `json:"duty_regions"`
	SleepRegions []roster.TimelineRegion `json:"sleep_regions"`
}

// handleTimeline accepts an analysis payload in the remote service's wire
// format and returns the chart-ready domain view: mapped results plus the
// continuous month timeline.
func (s *server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := w.Header().Get("X-Request-ID")

	if !s.limiter.allow(clientIP(r)) {
		s.logger.Error("Rate limit exceeded", "request_id", requestID, "client_ip", clientIP(r))
		requestsTotal.WithLabelValues("/api/v1/timeline", "429").Inc()
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Error("Failed to read request body", "request_id", requestID, "error", err)
		requestsTotal.WithLabelValues("/api/v1/timeline", "400").Inc()
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	key := cacheKey(body)
	if data, ok := s.cache.GetIfPresent(key); ok {
		cacheHits.Inc()
		requestsTotal.WithLabelValues("/api/v1/timeline", "200").Inc()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		if _, err := w.Write(data); err != nil {
			s.logger.Error("Failed to write cached response", "request_id", requestID, "error", err)
		}
		return
	}

	var payload fatigueapi.AnalysisResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Error("Invalid payload", "request_id", requestID, "error", err)
		requestsTotal.WithLabelValues("/api/v1/timeline", "400").Inc()
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	buildStart := time.Now()
	results, err := s.mapper.MapAnalysis(&payload)
	if err != nil {
		s.logger.Error("Mapping failed", "request_id", requestID, "error", err)
		requestsTotal.WithLabelValues("/api/v1/timeline", "422").Inc()
		http.Error(w, "Unprocessable payload", http.StatusUnprocessableEntity)
		return
	}

	month, err := time.Parse("2006-01", results.Month)
	if err != nil {
		month = time.Now().UTC()
	}
	built := s.builder.Build(timeline.BuildInput{
		Duties:   results.Duties,
		RestDays: results.RestDays,
		Month:    month,
	})
	buildDuration.Observe(time.Since(buildStart).Seconds())

	data, err := json.Marshal(timelineResponse{
		Results:      results,
		Points:       built.Points,
		DutyRegions:  built.DutyRegions,
		SleepRegions: built.SleepRegions,
	})
	if err != nil {
		s.logger.Error("JSON encoding failed", "request_id", requestID, "error", err)
		requestsTotal.WithLabelValues("/api/v1/timeline", "500").Inc()
		http.Error(w, "Encoding failed", http.StatusInternalServerError)
		return
	}
	s.cache.Set(key, data)

	requestsTotal.WithLabelValues("/api/v1/timeline", "200").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response", "request_id", requestID, "error", err)
		return
	}
	s.logger.Info("Timeline built",
		"request_id", requestID,
		"analysis_id", results.AnalysisID,
		"duties", len(results.Duties),
		"points", len(built.Points),
		"duration_ms", time.Since(start).Milliseconds())
}

// handleDutyTimeline proxies the per-duty drill-down from the remote service
// and maps it into the domain shape.
func (s *server) handleDutyTimeline(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get("X-Request-ID")

	if s.client == nil {
		http.Error(w, "No upstream service configured", http.StatusNotImplemented)
		requestsTotal.WithLabelValues("/api/v1/duty", "501").Inc()
		return
	}
	if !s.limiter.allow(clientIP(r)) {
		requestsTotal.WithLabelValues("/api/v1/duty", "429").Inc()
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	analysisID := r.PathValue("analysisID")
	dutyID := r.PathValue("dutyID")

	resp, err := s.client.DutyTimeline(r.Context(), analysisID, dutyID)
	if err != nil {
		s.logger.Error("Drill-down fetch failed",
			"request_id", requestID, "analysis_id", analysisID, "duty_id", dutyID, "error", err)
		requestsTotal.WithLabelValues("/api/v1/duty", "502").Inc()
		http.Error(w, "Upstream fetch failed", http.StatusBadGateway)
		return
	}

	requestsTotal.WithLabelValues("/api/v1/duty", "200").Inc()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transform.MapDutyTimeline(resp)); err != nil {
		s.logger.Error("Failed to encode response", "request_id", requestID, "error", err)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"cache_size":   s.cache.EstimatedSize(),
		"has_upstream": s.client != nil,
	}); err != nil {
		s.logger.Error("Failed to encode health response", "error", err)
	}
}

func cacheKey(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
