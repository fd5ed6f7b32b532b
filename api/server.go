// Package api assembles the HTTP surface of the simulator.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/dronedispatch/api/drones"
	"github.com/kilianp07/dronedispatch/api/journal"
	"github.com/kilianp07/dronedispatch/api/mapdata"
	"github.com/kilianp07/dronedispatch/api/report"
	"github.com/kilianp07/dronedispatch/api/requests"
	"github.com/kilianp07/dronedispatch/api/respond"
	"github.com/kilianp07/dronedispatch/api/stream"
	"github.com/kilianp07/dronedispatch/core/logger"
	"github.com/kilianp07/dronedispatch/core/sim"
	inframetrics "github.com/kilianp07/dronedispatch/infra/metrics"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr string `json:"addr"`
	// JournalToken protects /api/journal when set.
	JournalToken string `json:"journal_token"`
	// Metrics also serves /metrics on this server.
	Metrics       bool `json:"metrics"`
	PingIntervalS int  `json:"ping_interval_s"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PingIntervalS <= 0 {
		c.PingIntervalS = 30
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("server: addr is required")
	}
	return nil
}

// NewRouter wires every handler onto a fresh mux.
func NewRouter(s *sim.Simulation, cfg Config, log logger.Logger) http.Handler {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	mux := http.NewServeMux()
	mux.Handle("GET /api/drones", drones.NewListHandler(s))
	mux.Handle("GET /api/drones/{id}", drones.NewGetHandler(s))
	mux.Handle("POST /api/drones/{id}/command", drones.NewCommandHandler(s))
	mux.Handle("/api/requests", requests.NewHandler(s))
	mux.Handle("GET /api/requests/{id}", requests.NewGetHandler(s))
	mux.Handle("POST /api/requests/{id}/dispatch", requests.NewDispatchHandler(s))
	mux.Handle("GET /api/map", mapdata.NewPointsHandler(s))
	mux.Handle("GET /api/map.geojson", mapdata.NewGeoJSONHandler(s))
	mux.Handle("GET /api/report", report.NewHandler(s))
	mux.Handle("GET /api/journal", journal.NewHandler(s.Journal(), cfg.JournalToken))
	mux.Handle("/ws", stream.NewServer(s, stream.Config{PingInterval: time.Duration(cfg.PingIntervalS) * time.Second}, log))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]any{"status": "ok", "drones": len(s.ListAgents())})
	})
	if cfg.Metrics {
		mux.Handle("GET /metrics", inframetrics.Handler(nil))
	}
	return withLogging(mux, log)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func withLogging(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debugw("http request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// Serve runs the HTTP server on cfg.Addr until ctx is canceled.
func Serve(ctx context.Context, cfg Config, h http.Handler, log logger.Logger) error {
	srv := &http.Server{Addr: cfg.Addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("http server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
