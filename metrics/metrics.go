// Package metrics exposes Prometheus collectors for a client engine.
//
// Metrics collected (namespace "signalfish" by default):
//   - signalfish_commands_sent_total: commands written to the transport, by type
//   - signalfish_command_errors_total: commands that failed, by type and reason
//   - signalfish_notifications_received_total: decoded notifications, by type
//   - signalfish_decode_errors_total: inbound frames that were not valid messages
//   - signalfish_events_dropped_total: events dropped because the consumer lagged, by type
//   - signalfish_bytes_sent_total / signalfish_bytes_received_total: frame payload bytes
//   - signalfish_connected: 1 while an engine is running
//   - signalfish_disconnects_total: engine exits, by cause
//   - signalfish_shutdown_duration_seconds: time Shutdown took
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "signalfish").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "signalfish",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Disconnect causes, used as the "cause" label.
const (
	CauseShutdown     = "shutdown"
	CausePeerClosed   = "peer_closed"
	CauseSendError    = "send_error"
	CauseReceiveError = "receive_error"
	CauseCancelled    = "cancelled"
)

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	commandsSent     *prometheus.CounterVec
	commandErrors    *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	decodeErrors     prometheus.Counter
	eventsDropped    *prometheus.CounterVec
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
	connected        prometheus.Gauge
	disconnects      *prometheus.CounterVec
	shutdownDuration prometheus.Histogram
}

// New registers the collectors with the configured registry. Registering
// twice with the same registry panics, as promauto does; share one
// Collector across clients instead.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	return &Collector{
		commandsSent: factory.NewCounterVec(
			counter("commands_sent_total", "Commands written to the transport"),
			[]string{"type"}),
		commandErrors: factory.NewCounterVec(
			counter("command_errors_total", "Commands that could not be sent"),
			[]string{"type", "reason"}),
		notifications: factory.NewCounterVec(
			counter("notifications_received_total", "Notifications decoded from the server"),
			[]string{"type"}),
		decodeErrors: factory.NewCounter(
			counter("decode_errors_total", "Inbound frames that were not valid protocol messages")),
		eventsDropped: factory.NewCounterVec(
			counter("events_dropped_total", "Events dropped because the event queue was full"),
			[]string{"type"}),
		bytesSent: factory.NewCounter(
			counter("bytes_sent_total", "Bytes of frame text written to the transport")),
		bytesReceived: factory.NewCounter(
			counter("bytes_received_total", "Bytes of frame text read from the transport")),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connected",
			Help:        "Number of running client engines",
			ConstLabels: config.ConstLabels,
		}),
		disconnects: factory.NewCounterVec(
			counter("disconnects_total", "Engine exits by cause"),
			[]string{"cause"}),
		shutdownDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "shutdown_duration_seconds",
			Help:        "Time taken by Shutdown, including forced cancellation",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

func (c *Collector) CommandSent(msgType string, bytes int) {
	if c == nil {
		return
	}
	c.commandsSent.WithLabelValues(msgType).Inc()
	c.bytesSent.Add(float64(bytes))
}

// CommandFailed records a command that did not reach the transport.
// reason is "encode" or "send".
func (c *Collector) CommandFailed(msgType, reason string) {
	if c == nil {
		return
	}
	c.commandErrors.WithLabelValues(msgType, reason).Inc()
}

func (c *Collector) NotificationReceived(msgType string, bytes int) {
	if c == nil {
		return
	}
	c.notifications.WithLabelValues(msgType).Inc()
	c.bytesReceived.Add(float64(bytes))
}

func (c *Collector) DecodeFailed(bytes int) {
	if c == nil {
		return
	}
	c.decodeErrors.Inc()
	c.bytesReceived.Add(float64(bytes))
}

func (c *Collector) EventDropped(eventType string) {
	if c == nil {
		return
	}
	c.eventsDropped.WithLabelValues(eventType).Inc()
}

func (c *Collector) EngineStarted() {
	if c == nil {
		return
	}
	c.connected.Inc()
}

// EngineStopped records an engine exit with one of the Cause constants.
func (c *Collector) EngineStopped(cause string) {
	if c == nil {
		return
	}
	c.connected.Dec()
	c.disconnects.WithLabelValues(cause).Inc()
}

func (c *Collector) ShutdownTook(d time.Duration) {
	if c == nil {
		return
	}
	c.shutdownDuration.Observe(d.Seconds())
}
