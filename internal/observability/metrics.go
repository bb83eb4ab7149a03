package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	// Registry holds only this module's collectors so textfile exports stay small.
	Registry = prometheus.NewRegistry()

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matlab_bridge",
			Subsystem: "commander",
			Name:      "commands_total",
			Help:      "Commands executed against the Matlab command server.",
		},
		[]string{"status"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matlab_bridge",
			Subsystem: "commander",
			Name:      "command_duration_seconds",
			Help:      "End-to-end command duration including server start-up waits.",
			Buckets:   []float64{.005, .025, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"status"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matlab_bridge",
			Subsystem: "commander",
			Name:      "connect_attempts_total",
			Help:      "TCP connect attempts to the command server.",
		},
		[]string{"result"},
	)
	launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matlab_bridge",
			Subsystem: "supervisor",
			Name:      "launches_total",
			Help:      "Matlab server launch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matlab_bridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the bridge.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matlab_bridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		Registry.MustRegister(commands, commandDuration, connectAttempts, launches, httpRequests, httpDuration)
	})
}

func RecordCommand(status string, duration time.Duration) {
	RegisterMetrics()
	commands.WithLabelValues(status).Inc()
	commandDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordConnectAttempt(ok bool) {
	RegisterMetrics()
	result := "refused"
	if ok {
		result = "connected"
	}
	connectAttempts.WithLabelValues(result).Inc()
}

func RecordLaunch(outcome string) {
	RegisterMetrics()
	launches.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// WriteTextfile dumps the registry in text exposition format for a node
// exporter textfile collector. Short-lived CLI runs use this instead of /metrics.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, Registry)
}
