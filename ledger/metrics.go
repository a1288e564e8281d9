package ledger

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors of the ledger application.
type Metrics struct {
	txs    *prometheus.CounterVec
	holds  *prometheus.CounterVec
	height prometheus.Gauge
}

// NewMetrics creates the ledger collectors and registers them with given
// registerer. A nil registerer keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quickhold",
				Name:      "txs_total",
				Help:      "Transactions processed, by phase, message path and result code.",
			},
			[]string{"phase", "path", "code"},
		),
		holds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "quickhold",
				Name:      "holds_total",
				Help:      "Hold state transitions, by the state entered.",
			},
			[]string{"state"},
		),
		height: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "quickhold",
				Name:      "block_height",
				Help:      "Height of the last committed block.",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.txs, m.holds, m.height)
	}
	return m
}

func (m *Metrics) tx(phase, path string, code uint32) {
	m.txs.WithLabelValues(phase, path, codeLabel(code)).Inc()
}

func (m *Metrics) hold(state HoldState, n int) {
	if n > 0 && state != 0 {
		m.holds.WithLabelValues(state.String()).Add(float64(n))
	}
}

func (m *Metrics) committed(height int64) {
	m.height.Set(float64(height))
}

func codeLabel(code uint32) string {
	if code == 0 {
		return "ok"
	}
	return strconv.FormatUint(uint64(code), 10)
}
