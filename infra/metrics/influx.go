package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/ObsyanX/kmrl-prototype1-sub001/core/metrics"
	"github.com/ObsyanX/kmrl-prototype1-sub001/infra/logger"
)

// InfluxSink writes planning telemetry to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so planning runs keep working when
// the telemetry backend is down.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordRun writes one nightly planning run as a point.
func (s *InfluxSink) RecordRun(r coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("induction_run").
		AddTag("optimization_id", r.OptimizationID).
		AddTag("plan_date", r.PlanDate.Format("2006-01-02")).
		AddTag("fleet_critical", strconv.FormatBool(r.FleetCritical)).
		AddTag("component", "induction_planner").
		AddField("for_service", r.ServiceCount).
		AddField("on_standby", r.StandbyCount).
		AddField("in_maintenance", r.MaintenanceCount).
		AddField("unassigned", r.UnassignedCount).
		AddField("errors", r.ErrorCount).
		AddField("demand_factor", round3(r.DemandFactor)).
		AddField("weather_severity", round3(r.WeatherSeverity)).
		AddField("congestion", round3(r.Congestion)).
		AddField("flooding_risk", round3(r.FloodingRisk)).
		AddField("duration_ms", r.Duration.Milliseconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSwap writes one what-if analysis as a point.
func (s *InfluxSink) RecordSwap(r coremetrics.SwapRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("induction_swap").
		AddTag("tier", r.Tier).
		AddTag("executed", strconv.FormatBool(r.Executed)).
		AddTag("plan_date", r.PlanDate.Format("2006-01-02")).
		AddTag("component", "whatif_engine").
		AddField("readiness_delta", round3(r.ReadinessDelta)).
		AddField("shunting_moves", r.ShuntingMoves).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
