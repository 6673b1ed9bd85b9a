package forecast

import (
	"fmt"
	"runtime"
	"time"
)

// DefaultPrecision is used when no precision is configured.
const DefaultPrecision = 4

// Config controls the forecast horizon and fan-out.
type Config struct {
	Steps       int `json:"steps"`
	StepMinutes int `json:"step_minutes"`
	// Precision is the number of decimals probabilities are rounded to.
	// Nil means DefaultPrecision; 0 rounds to whole numbers.
	Precision *int `json:"precision"`
	Workers   int `json:"workers"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Steps == 0 {
		c.Steps = 13
	}
	if c.StepMinutes == 0 {
		c.StepMinutes = 60
	}
	if c.Precision == nil {
		p := DefaultPrecision
		c.Precision = &p
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("forecast: steps must be positive")
	}
	if c.StepMinutes < 1 {
		return fmt.Errorf("forecast: step_minutes must be positive")
	}
	if d := c.Decimals(); d < 0 || d > 12 {
		return fmt.Errorf("forecast: precision must be within [0,12]")
	}
	if c.Workers < 1 {
		return fmt.Errorf("forecast: workers must be positive")
	}
	return nil
}

// Decimals returns the configured precision or DefaultPrecision.
func (c Config) Decimals() int {
	if c.Precision == nil {
		return DefaultPrecision
	}
	return *c.Precision
}

// Step returns the interval between two horizon instants.
func (c Config) Step() time.Duration { return time.Duration(c.StepMinutes) * time.Minute }

// StepHours returns the step expressed in hours.
func (c Config) StepHours() float64 { return c.Step().Hours() }
