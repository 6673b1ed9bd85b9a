package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/parkcast/config"
	"github.com/kilianp07/parkcast/core/artifact"
	coremetrics "github.com/kilianp07/parkcast/core/metrics"
	"github.com/kilianp07/parkcast/core/pipeline"
	"github.com/kilianp07/parkcast/core/schema"
	"github.com/kilianp07/parkcast/infra/ingest"
	"github.com/kilianp07/parkcast/infra/logger"

	// register the built-in metrics sinks
	_ "github.com/kilianp07/parkcast/infra/metrics"
	// register the built-in publishers
	_ "github.com/kilianp07/parkcast/infra/publish"
)

// Service wires the pipeline to its inputs, metrics sinks and publishers.
type Service struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	sink     coremetrics.MetricsSink
	pubs     []artifact.Publisher
	log      logger.Logger
}

// New creates a Service from the configuration. Input files are checked
// lazily by the command that needs them.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mapping := schema.Default()
	if cfg.Input.SchemaPath != "" {
		over, err := schema.LoadMapping(cfg.Input.SchemaPath)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		mapping = mapping.Merge(over)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	pubs, err := artifact.NewPublishers(cfg.Publish.Publishers)
	if err != nil {
		_ = coremetrics.Close(sink)
		return nil, err
	}

	src := ingest.FileSource{BaysPath: cfg.Input.BaysPath, EventsPath: cfg.Input.EventsPath, Mapping: mapping}
	pcfg := pipeline.Config{
		Zones:          cfg.Zones,
		Model:          cfg.Model,
		Forecast:       cfg.Forecast,
		ZoneFromEvents: cfg.Input.FeedZones(),
	}
	return &Service{
		cfg:      cfg,
		pipeline: pipeline.New(pcfg, src, sink, logger.New("pipeline")),
		sink:     sink,
		pubs:     pubs,
		log:      logg,
	}, nil
}

// Run executes the full pipeline and publishes its artifacts. A zero now
// uses the current time.
func (s *Service) Run(ctx context.Context, now time.Time) (*artifact.Bundle, error) {
	if err := s.cfg.Input.Require(true); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = time.Now()
	}
	b, err := s.pipeline.Run(ctx, now)
	if err != nil {
		return nil, err
	}
	return b, s.publish(ctx, b)
}

// Zones runs zone inference only and publishes the zone artifacts.
func (s *Service) Zones(ctx context.Context) (*artifact.Bundle, error) {
	if err := s.cfg.Input.Require(s.cfg.Input.FeedZones()); err != nil {
		return nil, err
	}
	b, err := s.pipeline.Zones(ctx)
	if err != nil {
		return nil, err
	}
	return b, s.publish(ctx, b)
}

func (s *Service) publish(ctx context.Context, b *artifact.Bundle) error {
	if err := artifact.PublishAll(ctx, s.pubs, b, s.log); err != nil {
		return fmt.Errorf("publish run %s: %w", b.RunID, err)
	}
	s.log.Infof("run %s published to %d targets", b.RunID, len(s.pubs))
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	return errors.Join(artifact.CloseAll(s.pubs), coremetrics.Close(s.sink))
}
