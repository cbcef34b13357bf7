// Package app wires the configuration into a running induction service:
// store backend, telemetry sinks, forecast providers, planner, HTTP API and
// the MQTT bridge.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/api/plans"
	"github.com/ObsyanX/kmrl-prototype1-sub001/config"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/allocation"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/audit"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/forecast"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/induction"
	coremetrics "github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/readiness"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/slotplan"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/store"
	"github.com/ObsyanX/kmrl-prototype1-sub001/core/whatif"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/logger"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/memstore"
	inframetrics "github.com/ObsyanX/kmrl-prototype1-sub001/infra/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/mqtt"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/postgres"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/weather"
	"github.com/ObsyanX/kmrl-prototype1-sub001/internal/eventbus"
)

// Service owns the wired collaborators and the HTTP server.
type Service struct {
	Planner  *induction.Planner
	store    store.Store
	closer   func() error
	bus      *eventbus.Bus
	bridge   *mqtt.PlanPublisher
	trail    audit.Store
	apiAddr  string
	promAddr string
	log      logger.Logger
}

// New builds the service from configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	st, closer, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	trail, err := newAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	var weatherProvider forecast.WeatherProvider = forecast.StoreWeather{Reader: st}
	if cfg.Forecast.Weather.BaseURL != "" {
		weatherProvider = weather.NewClient(cfg.Forecast.Weather)
	}
	agg := forecast.NewAggregator(
		weatherProvider,
		forecast.StoreCongestion{Reader: st},
		forecast.StoreCalendar{Reader: st},
		time.Duration(cfg.Forecast.TimeoutSeconds)*time.Second,
		logger.New("forecast"),
	)

	slots, err := slotplan.NewScheduler(cfg.Slots)
	if err != nil {
		return nil, fmt.Errorf("slot scheduler: %w", err)
	}

	bus := eventbus.New()
	planner, err := induction.NewPlanner(induction.Deps{
		Store:      st,
		Forecasts:  agg,
		Scorer:     readiness.NewScorer(cfg.Readiness.Weights()),
		Constraint: cfg.Constraint,
		Optimizer:  allocation.NewOptimizer(cfg.Allocation),
		Slots:      slots,
		WhatIf:     whatif.NewEngine(cfg.WhatIf),
		Audit:      trail,
		Bus:        bus,
		Metrics:    sink,
		Logger:     logger.New("planner"),
	})
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Planner:  planner,
		store:    st,
		closer:   closer,
		bus:      bus,
		trail:    trail,
		apiAddr:  cfg.API.Addr,
		promAddr: cfg.API.PromAddr,
		log:      log,
	}

	if cfg.MQTT.Enabled {
		bridge, err := mqtt.NewPlanPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt bridge: %w", err)
		}
		svc.bridge = bridge
	}
	return svc, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Backend {
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, pg.Close, nil
	default:
		return memstore.New(), func() error { return nil }, nil
	}
}

func newAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	if cfg.Path == "" {
		return audit.NopStore{}, nil
	}
	return audit.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
}

// Run starts the HTTP surfaces and the MQTT bridge, then blocks until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.bridge != nil {
		go s.bridge.Bridge(s.bus)
	}
	go func() {
		if err := inframetrics.StartPromServer(ctx, s.promAddr); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/api/plans", plans.NewListHandler(s.store))
	mux.Handle("/api/plans/approve", plans.NewApproveHandler(s.Planner))
	mux.Handle("/api/runs", plans.NewRunHandler(s.Planner))
	mux.Handle("/api/whatif", plans.NewSwapHandler(s.Planner))

	srv := &http.Server{Addr: s.apiAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("induction API listening on %s", s.apiAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases the service resources.
func (s *Service) Close() error {
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.bus.Close()
	if err := s.trail.Close(); err != nil {
		s.log.Errorf("audit close: %v", err)
	}
	return s.closer()
}
