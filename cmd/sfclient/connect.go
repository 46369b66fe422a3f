package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/risa-org/signalfish/client"
	"github.com/risa-org/signalfish/metrics"
	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/transport"
	"github.com/risa-org/signalfish/transport/gorilla"
	"github.com/risa-org/signalfish/transport/tcp"
	"github.com/risa-org/signalfish/transport/websocket"
	"github.com/spf13/cobra"
)

const defaultURL = "ws://localhost:3536/ws"

// errDone ends an event loop without an error.
var errDone = errors.New("done")

// connectOptions are the flags shared by every command that talks to a
// server.
type connectOptions struct {
	url             string
	appID           string
	transport       string
	dialTimeout     time.Duration
	shutdownTimeout time.Duration
	verbose         bool
	metricsAddr     string
}

func (o *connectOptions) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.url, "url", envOr("SIGNALFISH_URL", defaultURL), "Server URL (host:port for --transport tcp)")
	f.StringVar(&o.appID, "app-id", os.Getenv("SIGNALFISH_APP_ID"), "Public app ID")
	f.StringVar(&o.transport, "transport", "ws", "Transport: ws, gorilla or tcp")
	f.DurationVar(&o.dialTimeout, "dial-timeout", 10*time.Second, "Give up connecting after this long")
	f.DurationVar(&o.shutdownTimeout, "shutdown-timeout", client.DefaultShutdownTimeout, "Grace period for closing the connection")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Log engine activity to stderr")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *connectOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *connectOptions) dial(ctx context.Context, logger *slog.Logger) (transport.Adapter, error) {
	ctx, cancel := context.WithTimeout(ctx, o.dialTimeout)
	defer cancel()

	switch o.transport {
	case "ws", "websocket":
		a, err := websocket.Dial(ctx, o.url, websocket.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return a, nil
	case "gorilla":
		a, err := gorilla.Dial(ctx, o.url, gorilla.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return a, nil
	case "tcp":
		a, err := tcp.Dial(ctx, o.url)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown transport %q (want ws, gorilla or tcp)", o.transport)
}

// start dials the server and starts a client on the connection.
func (o *connectOptions) start(ctx context.Context, stderr io.Writer) (*client.Client, <-chan client.Event, error) {
	if o.appID == "" {
		return nil, nil, errors.New("an app ID is required (--app-id or SIGNALFISH_APP_ID)")
	}
	logger := o.logger(stderr)

	adapter, err := o.dial(ctx, logger)
	if err != nil {
		return nil, nil, err
	}

	cfg := client.NewConfig(o.appID).
		WithPlatform("go").
		WithLogger(logger).
		WithShutdownTimeout(o.shutdownTimeout)
	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		cfg = cfg.WithMetrics(metrics.New(metrics.WithRegistry(reg)))
		go serveMetrics(o.metricsAddr, reg, logger)
	}

	c, events := client.Start(adapter, cfg)
	return c, events, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("metrics server stopped", "addr", addr, "error", err)
	}
}

// run prints events until the engine stops, ctx ends, or handle returns an
// error. errDone from handle is a normal exit.
func run(ctx context.Context, c *client.Client, events <-chan client.Event, out io.Writer, handle func(client.Event) error) error {
	for {
		select {
		case <-ctx.Done():
			info(out, "shutting down")
			return c.Shutdown(context.Background())

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			info(out, "%s", describe(ev))
			if d, ok := ev.(client.Disconnected); ok {
				return d.Err
			}
			if handle == nil {
				continue
			}
			if err := handle(ev); err != nil {
				shutdownErr := c.Shutdown(context.Background())
				if errors.Is(err, errDone) {
					return shutdownErr
				}
				return err
			}
		}
	}
}

// describe renders an event as one line of terminal output.
func describe(ev client.Event) string {
	if failure, ok := ev.(interface{ Err() error }); ok {
		if err := failure.Err(); err != nil {
			return fmt.Sprintf("%s: %v", ev.Type(), err)
		}
	}

	switch ev := ev.(type) {
	case client.Connected:
		return "connected"
	case client.Disconnected:
		if ev.Clean() {
			return "disconnected: server closed the connection"
		}
		return "disconnected: " + ev.Reason
	case protocol.Authenticated:
		return "authenticated with " + ev.AppName
	case protocol.RoomJoined:
		return fmt.Sprintf("joined room %s as %s (%d/%d players)",
			ev.RoomCode, ev.PlayerID, len(ev.CurrentPlayers), ev.MaxPlayers)
	case protocol.Reconnected:
		return fmt.Sprintf("reconnected to room %s (%d missed events)", ev.RoomCode, len(ev.MissedEvents))
	case protocol.PlayerJoined:
		return fmt.Sprintf("%s joined", ev.Player.Name)
	case protocol.PlayerLeft:
		return fmt.Sprintf("player %s left", ev.PlayerID)
	case protocol.LobbyStateChanged:
		return fmt.Sprintf("lobby %s, %d ready", ev.LobbyState, len(ev.ReadyPlayers))
	case protocol.GameStarting:
		return fmt.Sprintf("game starting with %d peers", len(ev.PeerConnections))
	case protocol.AuthorityChanged:
		return fmt.Sprintf("authority changed (you: %t)", ev.YouAreAuthority)
	case protocol.SpectatorJoined:
		return "spectating room " + ev.RoomCode
	}
	return ev.Type()
}
