package client

import (
	"log/slog"
	"time"

	"github.com/risa-org/signalfish/metrics"
	"github.com/risa-org/signalfish/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Version is the SDK version sent in Authenticate by default.
const Version = "0.1.0"

const (
	DefaultEventChannelCapacity = 256
	DefaultShutdownTimeout      = time.Second
)

// TracerName is the instrumentation name used when Config.Tracer is nil.
const TracerName = "signalfish"

// Config configures a client. Build one with NewConfig and adjust it with
// the With methods; each returns a modified copy.
type Config struct {
	// AppID is the public application identifier. It is not a secret.
	AppID string

	// SDKVersion is reported during authentication. Defaults to Version.
	SDKVersion *string

	// Platform identifies the runtime, e.g. "unity", "godot", "go".
	Platform *string

	// GameDataFormat is the preferred encoding for binary game data.
	GameDataFormat *protocol.GameDataEncoding

	// EventChannelCapacity bounds the event channel. When the consumer
	// lags, events other than Disconnected are dropped. Values below 1
	// are treated as 1.
	EventChannelCapacity int

	// ShutdownTimeout is how long Shutdown waits for the engine to close
	// the transport before cancelling it. Zero cancels immediately.
	ShutdownTimeout time.Duration

	// Logger receives engine logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records engine activity. Nil disables metrics.
	Metrics *metrics.Collector

	// Tracer starts a span per command sent and per notification handled.
	// Defaults to otel.Tracer(TracerName).
	Tracer trace.Tracer
}

// NewConfig returns a Config for appID with default values.
func NewConfig(appID string) Config {
	version := Version
	return Config{
		AppID:                appID,
		SDKVersion:           &version,
		EventChannelCapacity: DefaultEventChannelCapacity,
		ShutdownTimeout:      DefaultShutdownTimeout,
	}
}

func (c Config) WithSDKVersion(version string) Config {
	c.SDKVersion = &version
	return c
}

func (c Config) WithPlatform(platform string) Config {
	c.Platform = &platform
	return c
}

func (c Config) WithGameDataFormat(format protocol.GameDataEncoding) Config {
	c.GameDataFormat = &format
	return c
}

// WithEventChannelCapacity sets the event channel capacity, clamped to at
// least 1.
func (c Config) WithEventChannelCapacity(capacity int) Config {
	c.EventChannelCapacity = max(capacity, 1)
	return c
}

func (c Config) WithShutdownTimeout(timeout time.Duration) Config {
	c.ShutdownTimeout = timeout
	return c
}

func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	return c
}

func (c Config) WithMetrics(m *metrics.Collector) Config {
	c.Metrics = m
	return c
}

func (c Config) WithTracer(tracer trace.Tracer) Config {
	c.Tracer = tracer
	return c
}

// normalize fills the defaults Start relies on.
func (c Config) normalize() Config {
	c.EventChannelCapacity = max(c.EventChannelCapacity, 1)
	if c.ShutdownTimeout < 0 {
		c.ShutdownTimeout = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(TracerName)
	}
	return c
}

func (c Config) authenticate() protocol.Authenticate {
	return protocol.Authenticate{
		AppID:          c.AppID,
		SDKVersion:     c.SDKVersion,
		Platform:       c.Platform,
		GameDataFormat: c.GameDataFormat,
	}
}
