package director

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "director"

// Metrics 路由相关的指标，nil时所有方法都是空操作
type Metrics struct {
	connections prometheus.Gauge
	accepted    prometheus.Counter
	messages    *prometheus.CounterVec
	deliveries  prometheus.Counter
	drops       *prometheus.CounterVec
	control     *prometheus.CounterVec
	replays     prometheus.Counter
	bytesIn     prometheus.Counter
}

// NewMetrics 在reg上注册指标，reg为nil时使用prometheus默认的registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "connections",
			Help:      "Live agent connections.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "accepted_total",
			Help:      "Accepted agent connections.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "route",
			Name:      "messages_total",
			Help:      "Messages received, by kind.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "route",
			Name:      "deliveries_total",
			Help:      "Copies delivered to subscribers.",
		}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "route",
			Name:      "drops_total",
			Help:      "Copies that could not be queued, by reason.",
		}, []string{"reason"}),
		control: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "control",
			Name:      "messages_total",
			Help:      "Control messages, by code.",
		}, []string{"code"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "post_remove_replays_total",
			Help:      "Post-remove messages replayed on disconnect.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "received_bytes_total",
			Help:      "Bytes read from agents.",
		}),
	}
	reg.MustRegister(m.connections, m.accepted, m.messages, m.deliveries, m.drops, m.control, m.replays, m.bytesIn)
	return m
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.connections.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) message(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) delivered(n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.Add(float64(n))
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(reason).Inc()
}

func (m *Metrics) controlCode(code string) {
	if m == nil {
		return
	}
	m.control.WithLabelValues(code).Inc()
}

func (m *Metrics) replayed() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

func (m *Metrics) received(n int) {
	if m == nil {
		return
	}
	m.bytesIn.Add(float64(n))
}
