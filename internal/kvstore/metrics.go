package kvstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const operationsMetric = "storefront_kv_operations_total"

const (
	resultOK        = "ok"
	resultAbsent    = "absent"
	resultMalformed = "malformed"
	resultError     = "error"
)

type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: operationsMetric,
			Help: "Key-value store operations by kind and result",
		}, []string{"op", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_kv_operation_duration_seconds",
			Help:    "Duration of key-value store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *metrics) observe(op, result string, start time.Time) {
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// OperationCounts reads the store operation counters from g, keyed by
// "op/result".
func OperationCounts(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != operationsMetric {
			continue
		}
		for _, m := range family.GetMetric() {
			var op, result string
			for _, label := range m.GetLabel() {
				switch label.GetName() {
				case "op":
					op = label.GetValue()
				case "result":
					result = label.GetValue()
				}
			}
			counts[op+"/"+result] = m.GetCounter().GetValue()
		}
	}
	return counts, nil
}
