// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames crossing the MAC by direction ("rx", "tx").
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac1g_frames_total",
			Help: "Total number of frames transferred",
		},
		[]string{"direction"},
	)

	// FrameErrorsTotal counts frames delivered with an asserted error flag,
	// by error kind.
	FrameErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac1g_frame_errors_total",
			Help: "Total number of frames delivered with the error flag set",
		},
		[]string{"direction", "kind"},
	)

	// FrameDropsTotal counts frames dropped on host-queue overflow.
	FrameDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac1g_frame_drops_total",
			Help: "Total number of frames dropped on queue overflow",
		},
		[]string{"direction"},
	)

	// PauseFramesTotal counts recognized and synthesized pause frames by
	// direction and mechanism ("lfc", "pfc").
	PauseFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mac1g_pause_frames_total",
			Help: "Total number of MAC control pause frames",
		},
		[]string{"direction", "mechanism"},
	)

	// PausedClasses tracks how many priority classes are currently paused.
	PausedClasses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mac1g_paused_classes",
			Help: "Number of priority classes currently paused by the peer",
		},
	)

	// TimestampsTotal counts entries delivered on the TX timestamp side
	// channel.
	TimestampsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mac1g_tx_timestamps_total",
			Help: "Total number of TX timestamp side-channel entries",
		},
	)
)
