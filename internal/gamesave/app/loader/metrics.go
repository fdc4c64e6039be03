package loader

import "github.com/prometheus/client_golang/prometheus"

// Metrics 懒加载缓存的指标。reg 为 nil 时只创建不注册，便于测试。
type Metrics struct {
	Loads     prometheus.Counter
	Failures  prometheus.Counter
	Evictions prometheus.Counter
	// SkippedProperties 解码时未登记的键与无法解析的值。
	SkippedProperties prometheus.Counter
	ResidentLevels    prometheus.Gauge
	ResidentObjects   prometheus.Gauge
	DecodeSeconds     prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "loads_total",
			Help: "Level payloads decoded.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "failures_total",
			Help: "Level payloads that failed to decode.",
		}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "evictions_total",
			Help: "Level payloads evicted to honor the object threshold.",
		}),
		SkippedProperties: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "skipped_properties_total",
			Help: "Object properties skipped while decoding payloads.",
		}),
		ResidentLevels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "resident_levels",
			Help: "Levels whose payload is resident.",
		}),
		ResidentObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "resident_objects",
			Help: "Objects held by resident payloads.",
		}),
		DecodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "levelvault", Subsystem: "loader", Name: "decode_seconds",
			Help:    "Payload decode latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Loads, m.Failures, m.Evictions, m.SkippedProperties, m.ResidentLevels, m.ResidentObjects, m.DecodeSeconds)
	}
	return m
}
