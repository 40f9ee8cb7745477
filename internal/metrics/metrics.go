// Package metrics exposes the transfer engine's internal state —
// window occupancy, congestion window, retransmits, ack outcomes — as
// Prometheus gauges and counters, served over /metrics when the sender
// is started with --metrics-addr.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every series this module records.
type Metrics struct {
	WindowSize       prometheus.Gauge
	CwndBytes        prometheus.Gauge
	InflightPackets  prometheus.Gauge
	PacketsSentTotal prometheus.Counter
	AcksReceivedTotal prometheus.Counter
	RetransmitsTotal prometheus.Counter
	AcksDroppedTotal *prometheus.CounterVec
}

// New registers and returns a fresh set of metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WindowSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rudp_window_size",
			Help: "Current number of packets held in the sliding window.",
		}),
		CwndBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rudp_cwnd_bytes",
			Help: "Current congestion window size in bytes.",
		}),
		InflightPackets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rudp_inflight_packets",
			Help: "Current number of packets awaiting acknowledgement.",
		}),
		PacketsSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rudp_packets_sent_total",
			Help: "Total DATA/FIN packets sent, including retransmissions.",
		}),
		AcksReceivedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rudp_acks_received_total",
			Help: "Total acks delivered to the engine (after fault injection).",
		}),
		RetransmitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rudp_retransmits_total",
			Help: "Total packets retransmitted due to timeout.",
		}),
		AcksDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rudp_acks_dropped_total",
			Help: "Total acks discarded, labeled by reason.",
		}, []string{"reason"}),
	}
}

// Serve starts an HTTP server exposing /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
