package metrics

import (
	"errors"
	"fmt"

	"github.com/kilianp07/parkcast/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink creates a MetricsSink from the provided configuration.
// No configuration yields a NopSink and several entries a MultiSink. When
// one entry fails, the sinks already created are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			errs := []error{fmt.Errorf("metrics sink %d: %w", i, err)}
			for _, done := range sinks {
				errs = append(errs, Close(done))
			}
			return nil, errors.Join(errs...)
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
