package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/manas-aero/groundlink/internal/mavlink"
)

const (
	// DefaultLivenessTimeout is how long a channel may stay silent before
	// an alive session is declared offline.
	DefaultLivenessTimeout = 10 * time.Second

	// DefaultPollInterval is the cadence of the monitor loop: it bounds
	// CPU usage, drives the silence check, and caps cancellation latency.
	DefaultPollInterval = 50 * time.Millisecond

	eventBuffer = 64
)

// ErrHandshakeTimeout is returned by Run when the handshake bound elapses
// before the first heartbeat.
var ErrHandshakeTimeout = errors.New("timed out waiting for first heartbeat")

// WithLogger sets the logger for the monitor and its session.
func WithLogger(logger *slog.Logger) func(m *Monitor) {
	return func(m *Monitor) {
		m.logger = logger.With(slog.String("component", "linkmonitor"))
	}
}

// WithLivenessTimeout overrides DefaultLivenessTimeout.
func WithLivenessTimeout(timeout time.Duration) func(m *Monitor) {
	return func(m *Monitor) {
		m.livenessTimeout = timeout
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(interval time.Duration) func(m *Monitor) {
	return func(m *Monitor) {
		m.pollInterval = interval
	}
}

// WithHandshakeTimeout bounds the initial handshake wait. Zero, the
// default, waits indefinitely like the reference behavior; context
// cancellation interrupts the wait either way.
func WithHandshakeTimeout(timeout time.Duration) func(m *Monitor) {
	return func(m *Monitor) {
		m.handshakeTimeout = timeout
	}
}

// Monitor drives one Session over one Receiver: handshake first, then a
// poll loop draining frames, refreshing liveness, and emitting events. It
// is the session's only writer; consumers read the Events channel.
type Monitor struct {
	session *Session
	source  Receiver
	events  chan Event

	livenessTimeout  time.Duration
	pollInterval     time.Duration
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// NewMonitor creates a monitor for the named channel reading from source.
func NewMonitor(channel string, source Receiver, options ...func(m *Monitor)) *Monitor {
	m := Monitor{
		source:          source,
		events:          make(chan Event, eventBuffer),
		livenessTimeout: DefaultLivenessTimeout,
		pollInterval:    DefaultPollInterval,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&m)
	}

	m.session = NewSession(channel, m.logger)

	return &m
}

// Events returns the outbound event channel. It is closed when Run
// returns; nothing is emitted after that.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// Session exposes the session for state inspection.
func (m *Monitor) Session() *Session {
	return m.session
}

// Run blocks until ctx is cancelled or the handshake bound elapses. It
// waits for the first heartbeat, then polls: drain pending frames, check
// for silence, sleep one interval. Cancellation is honored within one
// interval.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.events)

	if err := m.awaitHandshake(ctx); err != nil {
		return err
	}

	now := time.Now()
	m.session.ObserveHandshake(now)
	m.emit(LivenessChanged{Alive: true, At: now})

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		m.drain()

		if now := time.Now(); m.session.CheckSilence(now, m.livenessTimeout) {
			m.emit(LivenessChanged{Alive: false, At: now})
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped", slog.String("channel", m.session.Channel()))
			return nil
		case <-ticker.C:
		}
	}
}

// awaitHandshake consumes frames until the first heartbeat arrives. Frames
// of other types seen here do not complete the handshake; the channel is
// confirmed live only by a heartbeat.
func (m *Monitor) awaitHandshake(ctx context.Context) error {
	m.logger.Info("waiting for first heartbeat", slog.String("channel", m.session.Channel()))

	var deadline <-chan time.Time
	if m.handshakeTimeout > 0 {
		timer := time.NewTimer(m.handshakeTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		for {
			frame, ok := m.source.Receive()
			if !ok {
				break
			}
			if frame.MsgID == mavlink.MsgIDHeartbeat {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %s", ErrHandshakeTimeout, m.handshakeTimeout)
		case <-ticker.C:
		}
	}
}

// drain processes every pending frame. Each verified frame refreshes
// freshness; heartbeats may revive an offline channel, position messages
// always yield a fix regardless of liveness state.
func (m *Monitor) drain() {
	for {
		frame, ok := m.source.Receive()
		if !ok {
			return
		}

		now := time.Now()
		m.session.ObserveTraffic(now)

		switch frame.MsgID {
		case mavlink.MsgIDHeartbeat:
			if m.session.ObserveHeartbeat(now) {
				m.emit(LivenessChanged{Alive: true, At: now})
			}

		case mavlink.MsgIDGlobalPositionInt:
			pos, err := mavlink.DecodeGlobalPositionInt(frame.Payload)
			if err != nil {
				m.logger.Warn("dropping bad position payload", slog.String("error", err.Error()))
				continue
			}

			m.emit(PositionUpdate{Fix: PositionFix{
				Latitude:   pos.Latitude(),
				Longitude:  pos.Longitude(),
				Altitude:   pos.RelativeAltitude(),
				ObservedAt: now,
				Valid:      true,
			}})
		}
	}
}

// emit delivers ev without ever blocking the poll loop: events are
// fire-and-forget, so when the consumer lags behind the buffer the event is
// dropped, the same policy the UDP source applies to frames.
func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("dropping event, consumer lagging")
	}
}
