package link

import (
	"log/slog"
	"time"

	"github.com/looplab/fsm"
)

// Liveness states of a telemetry channel. A session starts in
// StateConnecting, moves to StateAlive on the handshake, and may toggle
// between StateAlive and StateOffline for the rest of its life.
const (
	StateConnecting = "connecting"
	StateAlive      = "alive"
	StateOffline    = "offline"
)

const (
	handshakeEvent = "handshake"
	heartbeatEvent = "heartbeat"
	silenceEvent   = "silence"
)

// Session holds the state of one telemetry channel. It is owned by exactly
// one Monitor; nothing else mutates it.
type Session struct {
	channel       string
	machine       *fsm.FSM
	lastMessageAt time.Time
}

// NewSession creates a session for the named channel in StateConnecting.
func NewSession(channel string, logger *slog.Logger) *Session {
	s := Session{channel: channel}

	s.machine = fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: handshakeEvent, Src: []string{StateConnecting}, Dst: StateAlive},
			{Name: heartbeatEvent, Src: []string{StateOffline}, Dst: StateAlive},
			{Name: silenceEvent, Src: []string{StateAlive}, Dst: StateOffline},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				logger.Info("link state changed",
					slog.String("channel", s.channel),
					slog.String("from", e.Src),
					slog.String("to", e.Dst))
			},
		},
	)

	return &s
}

// Channel returns the channel identifier.
func (s *Session) Channel() string {
	return s.channel
}

// State returns the current liveness state.
func (s *Session) State() string {
	return s.machine.Current()
}

// LastMessageAt returns when traffic was last observed.
func (s *Session) LastMessageAt() time.Time {
	return s.lastMessageAt
}

// ObserveTraffic refreshes the freshness stamp. Any verified frame counts,
// not only heartbeats; this keeps liveness stable when heartbeat cadence is
// sparse relative to other telemetry.
func (s *Session) ObserveTraffic(now time.Time) {
	s.lastMessageAt = now
}

// ObserveHandshake records the first heartbeat on the channel, completing
// the connecting phase.
func (s *Session) ObserveHandshake(now time.Time) {
	s.lastMessageAt = now
	_ = s.machine.Event(handshakeEvent)
}

// ObserveHeartbeat records a heartbeat and reports whether it revived an
// offline channel. A heartbeat while already alive only refreshes freshness,
// so callers emit no redundant liveness event.
func (s *Session) ObserveHeartbeat(now time.Time) (revived bool) {
	s.lastMessageAt = now
	if s.machine.Current() != StateOffline {
		return false
	}
	return s.machine.Event(heartbeatEvent) == nil
}

// CheckSilence transitions an alive channel to offline once no traffic has
// been observed for longer than timeout, reporting whether the transition
// happened. Subsequent calls while offline report false, so the transition
// is observed exactly once.
func (s *Session) CheckSilence(now time.Time, timeout time.Duration) (wentOffline bool) {
	if s.machine.Current() != StateAlive {
		return false
	}
	if now.Sub(s.lastMessageAt) <= timeout {
		return false
	}
	return s.machine.Event(silenceEvent) == nil
}
