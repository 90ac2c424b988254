// Package metrics is a thin façade over github.com/VictoriaMetrics/metrics,
// giving the frame codec, client multiplexer and server router a place to
// publish the rx/tx/err/drop counters spec.md §7 requires as the system's
// observability surface.
package metrics

import "github.com/VictoriaMetrics/metrics"

// Counters groups the named counters one component cares about so callers
// don't sprinkle string literals through the hot path.
type Counters struct {
	set    *metrics.Set
	prefix string
}

// NewCounters creates an isolated counter set whose metric names are
// prefixed with prefix + "_", so a client and a server in the same process
// (tests) don't collide. An empty prefix leaves metric names unchanged.
func NewCounters(prefix string) *Counters {
	return &Counters{set: metrics.NewSet(), prefix: prefix}
}

// Inc increments the named counter. metric may include a VictoriaMetrics
// label suffix, e.g. `rustun_frames_rx_total{path="ipv6"}`.
func (c *Counters) Inc(metric string) {
	c.set.GetOrCreateCounter(c.prefixed(metric)).Inc()
}

func (c *Counters) prefixed(metric string) string {
	if c.prefix == "" {
		return metric
	}
	return c.prefix + "_" + metric
}

// WritePrometheus writes every registered metric in Prometheus text format,
// used by the status surface / an optional scrape endpoint.
func (c *Counters) WritePrometheus(w interface{ Write([]byte) (int, error) }) {
	c.set.WritePrometheus(w)
}

// Names used across the client and server (spec.md §7, §8 scenarios).
const (
	FramesRx           = "rustun_frames_rx_total"
	FramesTx           = "rustun_frames_tx_total"
	FramesErr          = "rustun_frames_err_total"
	CryptoAuthFailure  = "rustun_crypto_auth_failure_total"
	CrossClusterDrop   = "rustun_cross_cluster_drop_total"
	QueueOverflowDrop  = "rustun_queue_overflow_drop_total"
	NoRouteDrop        = "rustun_no_route_drop_total"
)
