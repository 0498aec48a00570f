// Package metrics provides Prometheus metrics for +Drive exchanges.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by all counters.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeMismatch  = "mismatch"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	// Exchange metrics
	exchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elkdrive_exchanges_total",
			Help: "Total request/response exchanges by request type and outcome",
		},
		[]string{"type", "outcome"},
	)

	exchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elkdrive_exchange_duration_seconds",
			Help:    "Round-trip time of completed exchanges",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"type"},
	)

	sysexBytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elkdrive_sysex_bytes_sent_total",
			Help: "Total SysEx bytes transmitted",
		},
	)

	sysexBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elkdrive_sysex_bytes_received_total",
			Help: "Total SysEx bytes received",
		},
	)

	unsolicitedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elkdrive_unsolicited_frames_total",
			Help: "Frames received while no request was pending",
		},
	)

	requestsRejectedBusy = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elkdrive_requests_rejected_busy_total",
			Help: "Requests refused because another request was in flight",
		},
	)

	// Scanner metrics
	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "elkdrive_scan_duration_seconds",
			Help:    "Time to complete a full drive scan",
			Buckets: prometheus.DefBuckets,
		},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elkdrive_scans_total",
			Help: "Total scans by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	driveEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elkdrive_drive_entries",
			Help: "Number of entries in the last published drive snapshot",
		},
	)

	driveBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elkdrive_drive_bytes",
			Help: "Total file bytes in the last published drive snapshot",
		},
	)

	// File operation metrics
	fileOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elkdrive_file_operations_total",
			Help: "Total file operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// Emulator metrics
	emulatorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elkdrive_emulator_requests_total",
			Help: "Requests answered by the device emulator",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordExchange records one finished exchange.
func RecordExchange(reqType, outcome string, duration time.Duration) {
	exchangesTotal.WithLabelValues(reqType, outcome).Inc()
	if outcome == OutcomeOK {
		exchangeDuration.WithLabelValues(reqType).Observe(duration.Seconds())
	}
}

// RecordSent adds n transmitted bytes.
func RecordSent(n int) {
	sysexBytesSent.Add(float64(n))
}

// RecordReceived adds n received bytes.
func RecordReceived(n int) {
	sysexBytesReceived.Add(float64(n))
}

// RecordUnsolicited counts a frame that arrived with nothing pending.
func RecordUnsolicited() {
	unsolicitedFrames.Inc()
}

// RecordBusy counts a request refused because the slot was taken.
func RecordBusy() {
	requestsRejectedBusy.Inc()
}

// RecordScan records a scan of the given kind ("full", "refresh", "rescan").
func RecordScan(kind, outcome string, duration time.Duration) {
	scansTotal.WithLabelValues(kind, outcome).Inc()
	if kind == "full" && outcome == OutcomeOK {
		scanDuration.Observe(duration.Seconds())
	}
}

// SetDriveSize publishes the size of the current snapshot.
func SetDriveSize(entries int, bytes uint64) {
	driveEntries.Set(float64(entries))
	driveBytes.Set(float64(bytes))
}

// RecordFileOp records a file operation outcome.
func RecordFileOp(op, outcome string) {
	fileOpsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordEmulatorRequest counts a request served by the emulator.
func RecordEmulatorRequest(reqType string) {
	emulatorRequestsTotal.WithLabelValues(reqType).Inc()
}
