// Package artifact defines the outputs of a pipeline run and the
// publishers that persist them. Publishers are created from configuration
// through a factory registry; implementations live in infra/publish.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/factory"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/logger"
	"github.com/kilianp07/parkcast/core/model"
	"github.com/kilianp07/parkcast/core/zones"
)

// Bundle holds every artifact of one run. It is built only after all
// stages succeeded and is not modified afterwards.
type Bundle struct {
	RunID       string
	GeneratedAt time.Time
	// Bays is the final zone map.
	Bays      []model.Bay
	Centroids []zones.Centroid
	BayModel  []availability.Row
	ZoneModel []availability.Row
	// Forecast is nil for zone-only runs.
	Forecast *forecast.Result
}

// HasModel reports whether the bundle carries availability tables.
func (b *Bundle) HasModel() bool { return b.BayModel != nil || b.ZoneModel != nil }

// HasForecast reports whether the bundle carries forecasts.
func (b *Bundle) HasForecast() bool { return b.Forecast != nil }

// Publisher persists a bundle somewhere.
type Publisher interface {
	Publish(ctx context.Context, b *Bundle) error
	Close() error
}

// Config lists the publishers of a run. See NewPublishers for the order.
type Config struct {
	Publishers []factory.ModuleConfig `json:"publishers"`
}

// SetDefaults publishes to the out directory when nothing is configured.
func (c *Config) SetDefaults() {
	if len(c.Publishers) == 0 {
		c.Publishers = []factory.ModuleConfig{{Type: "file", Conf: map[string]any{"dir": "out"}}}
	}
}

var registry = factory.NewRegistry[Publisher]()

// RegisterPublisher adds a publisher factory identified by name.
func RegisterPublisher(name string, f factory.Factory[Publisher]) error {
	return registry.Register(name, f)
}

// NewPublishers creates the configured publishers. File publishers are
// moved after the others, keeping their relative order, so the directory
// the artifact server reads is swapped only once every other publisher
// succeeded. Publishers created before a failure are closed.
func NewPublishers(cfgs []factory.ModuleConfig) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for i, c := range publishOrder(cfgs) {
		p, err := registry.Create(c)
		if err != nil {
			_ = CloseAll(pubs)
			return nil, fmt.Errorf("publisher %d: %w", i, err)
		}
		pubs = append(pubs, p)
	}
	return pubs, nil
}

func publishOrder(cfgs []factory.ModuleConfig) []factory.ModuleConfig {
	out := make([]factory.ModuleConfig, 0, len(cfgs))
	var files []factory.ModuleConfig
	for _, c := range cfgs {
		if c.Type == "file" {
			files = append(files, c)
			continue
		}
		out = append(out, c)
	}
	return append(out, files...)
}

// PublishAll runs publishers in order and stops at the first error. Each
// publisher is atomic on its own; publishers that ran before a failure
// keep the new run.
func PublishAll(ctx context.Context, pubs []Publisher, b *Bundle, log logger.Logger) error {
	log = logger.OrNop(log)
	for i, p := range pubs {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := p.Publish(ctx, b); err != nil {
			return fmt.Errorf("publisher %d (%T): %w", i, p, err)
		}
		log.Debugf("published run %s with %T in %s", b.RunID, p, time.Since(start))
	}
	return nil
}

// CloseAll closes every publisher and joins the errors.
func CloseAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
