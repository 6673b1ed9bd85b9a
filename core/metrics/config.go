package metrics

import (
	"fmt"

	"github.com/kilianp07/parkcast/core/factory"
)

// Config lists the sinks stage and run events are sent to. An empty list
// disables metrics.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// Validate rejects entries without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
