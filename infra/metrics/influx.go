package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/parkcast/core/metrics"
	"github.com/kilianp07/parkcast/infra/logger"
)

// InfluxSink writes pipeline events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
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

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
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

// RecordStage writes one pipeline_stage point. Drops are stored as one
// dropped_<field> field each.
func (s *InfluxSink) RecordStage(ev coremetrics.StageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	total := 0
	p := write.NewPointWithMeasurement("pipeline_stage").
		AddTag("run_id", ev.RunID).
		AddTag("stage", ev.Stage).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("rows", ev.Rows)
	fields := make([]string, 0, len(ev.Dropped))
	for f, n := range ev.Dropped {
		fields = append(fields, f)
		total += n
	}
	sort.Strings(fields)
	for _, f := range fields {
		p = p.AddField("dropped_"+f, ev.Dropped[f])
	}
	p = p.AddField("dropped", total).SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the summary of a completed run.
func (s *InfluxSink) RecordRun(sum coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("pipeline_run").
		AddTag("run_id", sum.RunID).
		AddField("bays", sum.Bays).
		AddField("official", sum.Official).
		AddField("feed", sum.Feed).
		AddField("backfilled", sum.Backfilled).
		AddField("synthetic", sum.Synthetic).
		AddField("synthetic_zones", sum.SyntheticZones).
		AddField("zones", sum.Zones).
		AddField("bay_records", sum.BayRecords).
		AddField("zone_records", sum.ZoneRecords).
		AddField("forecast_bays", sum.ForecastBays).
		AddField("null_points", sum.NullPoints).
		AddField("coverage", round3(sum.Coverage)).
		AddField("backfill_p90_m", round3(sum.BackfillP90M)).
		AddField("duration_ms", round3(sum.Duration.Seconds()*1000)).
		SetTime(sum.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
