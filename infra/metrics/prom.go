package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
)

// PromSink exposes planning telemetry as Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	planned    *prometheus.GaugeVec
	unassigned prometheus.Gauge
	duration   prometheus.Histogram
	swaps      *prometheus.CounterVec
	demand     prometheus.Gauge
	weather    prometheus.Gauge
	congestion prometheus.Gauge
}

// NewPromSink registers the planning metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers on the provided registerer; nil falls
// back to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "induction_runs_total",
			Help: "Total nightly planning runs",
		}, []string{"fleet_critical"}),
		planned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "induction_trainsets_planned",
			Help: "Trainsets per category in the latest plan",
		}, []string{"category"}),
		unassigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "induction_unassigned_trains",
			Help: "Service-eligible trainsets without a departure slot",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "induction_run_duration_seconds",
			Help:    "Wall time of the nightly planning run",
			Buckets: prometheus.DefBuckets,
		}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "induction_swap_analyses_total",
			Help: "What-if swap analyses by recommendation tier",
		}, []string{"tier", "executed"}),
		demand: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "induction_demand_factor",
			Help: "Demand factor of the latest planning run",
		}),
		weather: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "induction_weather_severity",
			Help: "Weather severity of the latest planning run",
		}),
		congestion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "induction_depot_congestion",
			Help: "Depot congestion score of the latest planning run",
		}),
	}
	collectors := []prometheus.Collector{s.runs, s.planned, s.unassigned, s.duration, s.swaps, s.demand, s.weather, s.congestion}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s.runs = collectors[0].(*prometheus.CounterVec)
	s.planned = collectors[1].(*prometheus.GaugeVec)
	s.unassigned = collectors[2].(prometheus.Gauge)
	s.duration = collectors[3].(prometheus.Histogram)
	s.swaps = collectors[4].(*prometheus.CounterVec)
	s.demand = collectors[5].(prometheus.Gauge)
	s.weather = collectors[6].(prometheus.Gauge)
	s.congestion = collectors[7].(prometheus.Gauge)
	return s, nil
}

// RecordRun updates the run counters and gauges.
func (s *PromSink) RecordRun(r coremetrics.RunRecord) error {
	s.runs.WithLabelValues(strconv.FormatBool(r.FleetCritical)).Inc()
	s.planned.WithLabelValues("for_service").Set(float64(r.ServiceCount))
	s.planned.WithLabelValues("on_standby").Set(float64(r.StandbyCount))
	s.planned.WithLabelValues("in_maintenance").Set(float64(r.MaintenanceCount))
	s.unassigned.Set(float64(r.UnassignedCount))
	s.duration.Observe(r.Duration.Seconds())
	s.demand.Set(r.DemandFactor)
	s.weather.Set(r.WeatherSeverity)
	s.congestion.Set(r.Congestion)
	return nil
}

// RecordSwap counts an analysis by tier.
func (s *PromSink) RecordSwap(r coremetrics.SwapRecord) error {
	s.swaps.WithLabelValues(r.Tier, strconv.FormatBool(r.Executed)).Inc()
	return nil
}
