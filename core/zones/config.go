package zones

import (
	"fmt"

	"github.com/kilianp07/parkcast/core/model"
)

// Config holds the tunables of zone inference.
type Config struct {
	// KNeighbors is the number of known bays voting for an unknown one.
	KNeighbors int `json:"k_neighbors"`
	// MaxRadiusM gates backfill: the nearest known bay must be this close.
	MaxRadiusM float64 `json:"max_radius_m"`
	// EpsM is the DBSCAN neighbourhood radius in meters.
	EpsM float64 `json:"eps_m"`
	// MinSamples is the DBSCAN core point threshold, the point included.
	MinSamples int `json:"min_samples"`
	// SyntheticStart is the first id of the reserved synthetic range.
	SyntheticStart model.ZoneID `json:"synthetic_start"`
}

// SetDefaults applies the defaults of the reference pipeline.
func (c *Config) SetDefaults() {
	if c.KNeighbors == 0 {
		c.KNeighbors = 5
	}
	if c.MaxRadiusM == 0 {
		c.MaxRadiusM = 200
	}
	if c.EpsM == 0 {
		c.EpsM = 150
	}
	if c.MinSamples == 0 {
		c.MinSamples = 3
	}
	if c.SyntheticStart == 0 {
		c.SyntheticStart = 900000
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.KNeighbors < 1 {
		return fmt.Errorf("zones: k_neighbors must be positive")
	}
	if c.MaxRadiusM <= 0 || c.EpsM <= 0 {
		return fmt.Errorf("zones: max_radius_m and eps_m must be positive")
	}
	if c.MinSamples < 1 {
		return fmt.Errorf("zones: min_samples must be positive")
	}
	if c.SyntheticStart <= 0 {
		return fmt.Errorf("zones: synthetic_start must be positive")
	}
	return nil
}

// IsSynthetic reports whether z lies in the reserved synthetic range.
func (c Config) IsSynthetic(z model.ZoneID) bool { return z >= c.SyntheticStart }
