// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for simulations and their remote surfaces.
package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one of the same type.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}

func gathererFor(reg prometheus.Registerer) (prometheus.Registerer, prometheus.Gatherer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	return reg, gatherer
}
