package polling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "genvex_tunnel_poll_duration_seconds",
		Help: "Duration of one poll cycle (readDatapoints + readSetpoints).",
	})
	pollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genvex_tunnel_poll_errors_total",
		Help: "Total poll cycles that ended in error.",
	})
	sessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "genvex_tunnel_session_state",
		Help: "Current underlying session state (0=idle, 1=connecting, 2=connected, 3=closed).",
	})
)
