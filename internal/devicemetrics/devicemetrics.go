// Package devicemetrics declares the engine's Prometheus instruments,
// grounded on the teacher's promauto declarations in
// simulator/metrics/metrics.go but relabeled from the teacher's
// multi-device/gateway simulator metrics to the single-device engine's
// own counters.
package devicemetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UplinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorawan_device_uplinks_total",
		Help: "Total uplinks sent, by confirmation mode",
	}, []string{"confirmed"})

	DownlinksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lorawan_device_downlinks_total",
		Help: "Total downlinks accepted, by source window",
	}, []string{"window"})

	JoinAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lorawan_device_join_attempts_total",
		Help: "Total join attempts made",
	})

	JoinFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lorawan_device_join_failures_total",
		Help: "Total join attempts that exhausted MaxJoinAttempts",
	})

	NoAckTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lorawan_device_no_ack_total",
		Help: "Total confirmed uplinks that went unacknowledged",
	})

	SessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_device_session_state",
		Help: "1 if the device currently holds a joined session, 0 otherwise",
	})

	FCntUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_device_fcnt_up",
		Help: "Current uplink frame counter",
	})

	FCntDown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lorawan_device_fcnt_down",
		Help: "Current downlink frame counter",
	})
)
