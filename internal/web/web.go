package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigfeed/internal/config"
	appLog "gigfeed/internal/log"
	"gigfeed/internal/model"
	"gigfeed/internal/timefmt"
)

// gigsCacheTTL bounds how stale a served schedule may be between cron
// refreshes. Requests inside the TTL never trigger a pipeline run.
const gigsCacheTTL = 5 * time.Minute

// Runner is the pipeline facade the server drives.
type Runner interface {
	Run(ctx context.Context) ([]model.Gig, error)
}

// Server exposes the normalized schedule over HTTP:
//
//	/health       liveness probe
//	/api/gigs     JSON envelope consumed by the UI
//	/api/gigs.ics ICS calendar subscription of the same schedule
//	/metrics      prometheus metrics
type Server struct {
	cfg       *config.Config
	runner    Runner
	formatter *timefmt.Formatter
	mux       *http.ServeMux

	// In-memory cache for the schedule to avoid redundant pipeline runs
	// (and their enrichment calls) on every HTTP request.
	gigsMu    sync.RWMutex
	gigsCache *gigsCache
}

// gigsCache holds the last pipeline result and its timestamp.
type gigsCache struct {
	gigs      []model.Gig
	updatedAt time.Time
}

// successEnvelope and errorEnvelope are the two wrapper shapes the UI
// consumes. Data is always present on success, even when empty.
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    []model.Gig `json:"data"`
	Total   int         `json:"total"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, runner Runner) (*Server, error) {
	formatter, err := timefmt.New(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		runner:    runner,
		formatter: formatter,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartServer starts an HTTP server bound to cfg.Listen.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/gigs", s.handleGigs)
	s.mux.HandleFunc("/api/gigs.ics", s.handleICS)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleGigs serves the normalized schedule in the UI envelope. The CORS
// surface matches what the frontend expects: any origin, GET plus
// preflight.
func (s *Server) handleGigs(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorEnvelope{
			Error:   "Method not allowed",
			Message: r.Method + " is not supported",
		})
		return
	}

	gigs, err := s.gigs(r.Context())
	if err != nil {
		appLog.Error("gigs request failed", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Error:   "Failed to fetch gigs",
			Message: err.Error(),
		})
		return
	}
	if gigs == nil {
		gigs = []model.Gig{}
	}

	writeJSON(w, http.StatusOK, successEnvelope{
		Success: true,
		Data:    gigs,
		Total:   len(gigs),
	})
}

// handleICS serves the same schedule as an ICS calendar subscription.
// Degraded records (sentinel date) carry no renderable instant and are
// skipped.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	gigs, err := s.gigs(r.Context())
	if err != nil {
		appLog.Error("ics request failed", err)
		http.Error(w, "failed to build calendar", http.StatusInternalServerError)
		return
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)

	now := time.Now()
	for _, g := range gigs {
		start, ok := s.gigStart(g)
		if !ok {
			continue
		}

		ev := cal.AddEvent(fmt.Sprintf("gig-%s@gigfeed", g.ID))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(3 * time.Hour))
		ev.SetSummary(g.Title)
		if loc := gigLocation(g); loc != "" {
			ev.SetLocation(loc)
		}
		if g.Description != "" {
			ev.SetDescription(g.Description)
		}
		if g.URL != "" {
			ev.SetURL(g.URL)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Serialize()))
}

// gigStart re-parses a record's display date and time back into an instant
// in the display zone.
func (s *Server) gigStart(g model.Gig) (time.Time, bool) {
	if g.Date == model.TBD || g.StartTime == model.TBD {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("02-01-2006 3:04 PM", g.Date+" "+g.StartTime, s.formatter.Zone())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// gigLocation joins the known location fields, leaving sentinels out.
func gigLocation(g model.Gig) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{g.Venue, g.Location, g.Postcode} {
		if p != "" && p != model.TBD {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// gigs returns the cached schedule, running the pipeline when the cache is
// absent or stale.
func (s *Server) gigs(ctx context.Context) ([]model.Gig, error) {
	now := time.Now()

	s.gigsMu.RLock()
	gc := s.gigsCache
	s.gigsMu.RUnlock()
	if gc != nil && now.Sub(gc.updatedAt) < gigsCacheTTL {
		return gc.gigs, nil
	}

	return s.Refresh(ctx)
}

// Refresh runs the pipeline unconditionally and replaces the cache. The
// cron scheduler calls this so interactive requests usually hit the cache.
func (s *Server) Refresh(ctx context.Context) ([]model.Gig, error) {
	gigs, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.gigsMu.Lock()
	s.gigsCache = &gigsCache{
		gigs:      gigs,
		updatedAt: time.Now(),
	}
	s.gigsMu.Unlock()

	return gigs, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
}
