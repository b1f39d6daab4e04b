package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register is called from init() in each metrics file.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister puts every collector on the default registry. Safe to call twice.
func MustRegister() {
	once.Do(func() { MustRegisterWith(prometheus.DefaultRegisterer) })
}

// MustRegisterWith is MustRegister for a caller-owned registry.
func MustRegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(collectors...)
}
