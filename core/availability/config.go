package availability

import (
	"fmt"
	"time"
)

// DefaultTimezone is the zone the reference deployment observes.
const DefaultTimezone = "Australia/Melbourne"

// Config configures the model builder.
type Config struct {
	// Timezone is the IANA zone used to derive weekday and slot.
	Timezone string `json:"timezone"`
}

// SetDefaults fills empty fields.
func (c *Config) SetDefaults() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
}

// Validate checks that the timezone can be loaded.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location loads the configured time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("model: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
