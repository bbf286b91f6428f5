package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func NewPromCounterVec(m *prometheus.CounterVec) Observer {
	return &PrometheusMetric{
		observe: func(val float64, labels ...string) {
			m.WithLabelValues(labels...).Add(val)
		},
		Collector: m,
	}
}

// NewPromGauge creates an observer that sets the gauge to each observed value.
func NewPromGauge(m prometheus.Gauge) Observer {
	return &PrometheusMetric{
		observe: func(val float64, labels ...string) {
			m.Set(val)
		},
		Collector: m,
	}
}

// for histogram or summary vecs
func NewPromObserverVec(m prometheus.ObserverVec) Observer {
	return &PrometheusMetric{
		observe: func(val float64, labels ...string) {
			m.WithLabelValues(labels...).Observe(val)
		},
		Collector: m,
	}
}

type PrometheusMetric struct {
	observe func(val float64, labels ...string)
	prometheus.Collector
}

func (m *PrometheusMetric) Observe(val float64, labels ...string) {
	m.observe(val, labels...)
}
