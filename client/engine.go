package client

import (
	"context"
	"errors"
	"log/slog"

	"github.com/risa-org/signalfish/metrics"
	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/session"
	"github.com/risa-org/signalfish/transport"
	"github.com/risa-org/signalfish/transport/sender"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const reasonShutdown = "client shut down"

// engine owns the transport. It runs in its own goroutine and is the only
// writer of the session state and the event channel.
type engine struct {
	adapter  transport.Adapter
	sender   *sender.Sender
	state    *session.State
	outbox   *outbox
	events   chan Event
	shutdown <-chan struct{}
	done     chan struct{}

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	// closing is set once a graceful Close has been started
	closing bool
}

// run is the transport loop. It returns after the engine has emitted its
// last event and closed the event channel.
func (e *engine) run(ctx context.Context) {
	cause := metrics.CauseCancelled
	defer func() {
		e.state.MarkDisconnected()
		e.outbox.close()
		if n := e.outbox.pending(); n > 0 {
			e.logger.Debug("discarding unsent commands", "count", n)
		}
		close(e.events)
		e.metrics.EngineStopped(cause)
		e.logger.Debug("transport loop exited", "cause", cause)
		close(e.done)
	}()

	e.metrics.EngineStarted()
	e.logger.Debug("transport loop started")
	e.emit(Connected{})

	incoming := e.adapter.Receive()
	for {
		select {
		case <-ctx.Done():
			e.abandon()
			return

		case <-e.shutdown:
			e.logger.Debug("shutdown requested")
			cause = e.closeGracefully(ctx)
			return

		case <-e.outbox.Ready():
			msg, ok, drained := e.outbox.take()
			if drained {
				e.logger.Debug("command queue closed, shutting down")
				cause = e.closeGracefully(ctx)
				return
			}
			if !ok {
				continue
			}
			if err := e.send(ctx, msg); err != nil {
				if ctx.Err() != nil {
					e.abandon()
					return
				}
				e.logger.Error("transport send failed", "type", msg.Type(), "error", err)
				cause = metrics.CauseSendError
				e.fail(ctx, err)
				return
			}

		case text, ok := <-incoming:
			if !ok {
				cause = e.endOfStream(ctx)
				return
			}
			e.handle(ctx, text)
		}
	}
}

// send writes one command. Encoding failures are logged and swallowed;
// only a transport failure is returned.
func (e *engine) send(ctx context.Context, msg protocol.ClientMessage) error {
	ctx, span := e.tracer.Start(ctx, "signalfish.send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("signalfish.message.type", msg.Type())),
	)
	defer span.End()

	n, err := e.sender.Send(ctx, msg)
	var encErr *protocol.EncodeError
	switch {
	case err == nil:
		e.metrics.CommandSent(msg.Type(), n)
		span.SetAttributes(attribute.Int("signalfish.message.bytes", n))
		return nil
	case errors.As(err, &encErr):
		e.logger.Error("failed to encode command", "type", msg.Type(), "error", err)
		e.metrics.CommandFailed(msg.Type(), "encode")
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil
	default:
		e.metrics.CommandFailed(msg.Type(), "send")
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}
}

// handle decodes one inbound frame, updates the state and publishes the
// notification. Frames that do not decode are logged and skipped.
func (e *engine) handle(ctx context.Context, text string) {
	_, span := e.tracer.Start(ctx, "signalfish.receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	msg, err := protocol.DecodeServer([]byte(text))
	if err != nil {
		e.logger.Warn("failed to decode server message", "error", err, "raw", text)
		e.metrics.DecodeFailed(len(text))
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return
	}
	span.SetAttributes(attribute.String("signalfish.message.type", msg.Type()))
	e.metrics.NotificationReceived(msg.Type(), len(text))

	if e.state.Apply(msg) {
		e.logger.Debug("state updated", "type", msg.Type(), "phase", e.state.Phase())
	}
	e.emit(msg)
}

// endOfStream handles the closed Receive channel.
func (e *engine) endOfStream(ctx context.Context) string {
	cause := transport.EndOfStream(e.adapter)
	if cause == nil {
		e.logger.Debug("transport closed by server")
		e.releaseAdapter()
		e.disconnect(ctx, Disconnected{})
		return metrics.CausePeerClosed
	}
	e.logger.Error("transport receive failed", "error", cause)
	e.fail(ctx, &transport.ReceiveError{Err: cause})
	return metrics.CauseReceiveError
}

// fail ends the engine after a transport fault.
func (e *engine) fail(ctx context.Context, err error) {
	e.releaseAdapter()
	e.disconnect(ctx, Disconnected{Reason: err.Error(), Err: err})
}

// closeGracefully closes the transport and reports the client shut down.
// A forced cancellation leaves the Close call running and skips the final
// event.
func (e *engine) closeGracefully(ctx context.Context) string {
	e.closing = true
	closed := make(chan error, 1)
	go func() { closed <- e.adapter.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			e.logger.Debug("transport close reported an error", "error", err)
		}
	case <-ctx.Done():
		e.logger.Warn("transport close did not finish before cancellation")
		return metrics.CauseCancelled
	}

	if !e.disconnect(ctx, Disconnected{Reason: reasonShutdown}) {
		return metrics.CauseCancelled
	}
	return metrics.CauseShutdown
}

// abandon handles a forced cancellation. No final event is published.
func (e *engine) abandon() {
	e.logger.Debug("transport loop cancelled")
	if !e.closing {
		e.releaseAdapter()
	}
}

// releaseAdapter closes the transport without waiting on it.
func (e *engine) releaseAdapter() {
	go func() {
		if err := e.adapter.Close(); err != nil {
			e.logger.Debug("transport close reported an error", "error", err)
		}
	}()
}

// emit publishes ev unless the event channel is full, in which case ev is
// dropped.
func (e *engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event channel full, dropping event", "type", ev.Type())
		e.metrics.EventDropped(ev.Type())
	}
}

// disconnect marks the state disconnected and publishes the final event,
// waiting for room in the channel. It reports false if ctx was cancelled
// first.
func (e *engine) disconnect(ctx context.Context, ev Disconnected) bool {
	e.state.MarkDisconnected()
	select {
	case e.events <- ev:
		return true
	case <-ctx.Done():
		e.logger.Warn("cancelled before the disconnect event was delivered")
		return false
	}
}
