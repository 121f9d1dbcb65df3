// Package link monitors one telemetry channel: it performs the initial
// handshake, tracks liveness from traffic recency, and surfaces position
// fixes. Consumers observe the monitor only through its event channel.
package link

import "time"

// Event is one of the tagged variants emitted by a Monitor. Events for a
// session are delivered in the order their triggers were detected.
type Event interface {
	event()
}

// LivenessChanged reports a channel going alive or offline.
type LivenessChanged struct {
	Alive bool
	At    time.Time
}

// PositionUpdate carries a decoded position fix.
type PositionUpdate struct {
	Fix PositionFix
}

func (LivenessChanged) event() {}
func (PositionUpdate) event()  {}

// PositionFix is a decoded geographic sample. A new value is emitted per
// update; fixes are never mutated after emission.
type PositionFix struct {
	Latitude   float64   `json:"latitude"`  // degrees
	Longitude  float64   `json:"longitude"` // degrees
	Altitude   float64   `json:"altitude"`  // meters above home
	ObservedAt time.Time `json:"observedAt"`
	Valid      bool      `json:"valid"`
}
