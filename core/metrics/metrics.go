// Package metrics defines the sink interfaces for planning telemetry.
// Concrete sinks (Prometheus, InfluxDB) live under infra/metrics and are
// instantiated through the factory registry from configuration; multiple
// configured sinks combine into a MultiSink.
package metrics

import (
	"time"

	"github.com/ObsyanX/kmrl-prototype1-sub001/core/factory"
)

// RunRecord summarizes one nightly planning run.
type RunRecord struct {
	PlanDate         time.Time
	OptimizationID   string
	ServiceCount     int
	StandbyCount     int
	MaintenanceCount int
	UnassignedCount  int
	ErrorCount       int
	FleetCritical    bool
	DemandFactor     float64
	WeatherSeverity  float64
	Congestion       float64
	FloodingRisk     float64
	Duration         time.Duration
}

// SwapRecord summarizes one what-if analysis or execution.
type SwapRecord struct {
	PlanDate       time.Time
	Tier           string
	ReadinessDelta float64
	ShuntingMoves  int
	Executed       bool
}

// Sink receives planning telemetry.
type Sink interface {
	RecordRun(RunRecord) error
	RecordSwap(SwapRecord) error
}

// Config lists the sinks to instantiate.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordRun(RunRecord) error   { return nil }
func (NopSink) RecordSwap(SwapRecord) error { return nil }

// MultiSink fans records out to several sinks, returning the first error.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordRun(r RunRecord) error {
	for _, s := range m.sinks {
		if err := s.RecordRun(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordSwap(r SwapRecord) error {
	for _, s := range m.sinks {
		if err := s.RecordSwap(r); err != nil {
			return err
		}
	}
	return nil
}

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a Sink from configuration. No configured sinks yields a
// NopSink; several combine into a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
