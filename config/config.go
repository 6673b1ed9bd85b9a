package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/parkcast/core/artifact"
	"github.com/kilianp07/parkcast/core/availability"
	"github.com/kilianp07/parkcast/core/forecast"
	"github.com/kilianp07/parkcast/core/metrics"
	"github.com/kilianp07/parkcast/core/zones"
)

type Config struct {
	Input    InputConfig         `json:"input"`
	Zones    zones.Config        `json:"zones"`
	Model    availability.Config `json:"model"`
	Forecast forecast.Config     `json:"forecast"`
	Metrics  metrics.Config      `json:"metrics"`
	Publish  artifact.Config     `json:"publish"`
	Logging  LoggingConfig       `json:"logging"`
	Serve    ServeConfig         `json:"serve"`
}

// Load reads the YAML or JSON file at path, applies K_ prefixed
// environment overrides and fills defaults. Variables from a .env file in
// the working directory are loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Input.SetDefaults()
	c.Zones.SetDefaults()
	c.Model.SetDefaults()
	c.Forecast.SetDefaults()
	c.Publish.SetDefaults()
	c.Logging.SetDefaults()
	c.Serve.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Zones, c.Model, c.Forecast, c.Metrics, c.Logging} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InputConfig locates the input datasets.
type InputConfig struct {
	BaysPath   string `json:"bays_path"`
	EventsPath string `json:"events_path"`
	// SchemaPath optionally points to a YAML or JSON column alias file.
	SchemaPath string `json:"schema_path"`
	// ZoneFromEvents defaults to true.
	ZoneFromEvents *bool `json:"zone_from_events"`
}

// SetDefaults enables feed zones unless configured.
func (c *InputConfig) SetDefaults() {
	if c.ZoneFromEvents == nil {
		v := true
		c.ZoneFromEvents = &v
	}
}

// FeedZones reports whether zones reported by the feed are used.
func (c InputConfig) FeedZones() bool { return c.ZoneFromEvents == nil || *c.ZoneFromEvents }

// Require checks that the paths needed by a command are set.
func (c InputConfig) Require(events bool) error {
	if c.BaysPath == "" {
		return fmt.Errorf("input.bays_path is required")
	}
	if events && c.EventsPath == "" {
		return fmt.Errorf("input.events_path is required")
	}
	return nil
}

// ServeConfig configures the artifact server.
type ServeConfig struct {
	Addr          string `json:"addr"`
	MetricsAddr   string `json:"metrics_addr"`
	ForecastPath  string `json:"forecast_path"`
	CentroidsPath string `json:"centroids_path"`
}

// SetDefaults serves the default file publisher output.
func (c *ServeConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.ForecastPath == "" {
		c.ForecastPath = filepath.Join("out", "bay_forecasts.json")
	}
	if c.CentroidsPath == "" {
		c.CentroidsPath = filepath.Join("out", "zone_centroids.json")
	}
}
