package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/dronedispatch/api"
	"github.com/kilianp07/dronedispatch/config"
	"github.com/kilianp07/dronedispatch/core/journal"
	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	coremon "github.com/kilianp07/dronedispatch/core/monitoring"
	"github.com/kilianp07/dronedispatch/core/sim"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/infra/metrics"
	"github.com/kilianp07/dronedispatch/infra/monitoring"
	"github.com/kilianp07/dronedispatch/infra/mqtt"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Service wires the simulation to its outer surfaces.
type Service struct {
	Sim     *sim.Simulation
	Handler http.Handler

	cfg    *config.Config
	bus    *eventbus.Bus
	sink   coremetrics.MetricsSink
	bridge *mqtt.Bridge
	log    logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	store, err := journal.Open(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	bus := eventbus.New()
	s, err := sim.New(cfg.Simulation, sim.Deps{
		Bus:      bus,
		Logger:   logger.New("simulation"),
		Metrics:  sink,
		Journal:  store,
		Dispatch: cfg.Dispatch,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("simulation: %w", err)
	}

	svc := &Service{
		Sim:     s,
		Handler: api.NewRouter(s, cfg.Server, logger.New("http")),
		cfg:     cfg,
		bus:     bus,
		sink:    sink,
		log:     logg,
	}
	if cfg.MQTT.Enabled {
		b, err := mqtt.NewBridge(cfg.MQTT, s)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		svc.bridge = b
	}
	return svc, nil
}

// Run starts the clock and every configured surface, then blocks until ctx
// is cancelled or the HTTP server fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	metrics.StartEventCollector(ctx, s.bus, s.sink)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Sim.Run(ctx); err != nil {
			s.log.Errorf("simulation: %v", err)
		}
	}()
	if s.bridge != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.bridge.Run(ctx); err != nil {
				s.log.Errorf("mqtt bridge: %v", err)
			}
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, addr, logger.New("prometheus")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	err := api.Serve(ctx, s.cfg.Server, s.Handler, logger.New("http"))
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	coremon.Flush(2 * time.Second)
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.Sim.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
