package mavlink

import (
	"encoding/binary"
	"fmt"
)

const (
	heartbeatPayloadLen         = 9
	globalPositionIntPayloadLen = 28
)

// Heartbeat is the periodic "I am alive" message (HEARTBEAT, id 0). The
// first one observed on a channel doubles as the connection handshake.
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

// GlobalPositionInt is the fused position estimate (GLOBAL_POSITION_INT,
// id 33). Latitude and longitude are integer micro-degrees (1e7 scale),
// altitudes integer millimeters.
type GlobalPositionInt struct {
	TimeBootMs  uint32
	Lat         int32 // degE7
	Lon         int32 // degE7
	Alt         int32 // mm above MSL
	RelativeAlt int32 // mm above home
	Vx          int16 // cm/s
	Vy          int16 // cm/s
	Vz          int16 // cm/s
	Hdg         uint16
}

// Latitude returns the latitude in degrees.
func (m *GlobalPositionInt) Latitude() float64 { return float64(m.Lat) / 1e7 }

// Longitude returns the longitude in degrees.
func (m *GlobalPositionInt) Longitude() float64 { return float64(m.Lon) / 1e7 }

// RelativeAltitude returns the altitude above home in meters.
func (m *GlobalPositionInt) RelativeAltitude() float64 { return float64(m.RelativeAlt) / 1e3 }

// DecodeHeartbeat decodes a HEARTBEAT payload.
func DecodeHeartbeat(payload []byte) (*Heartbeat, error) {
	if len(payload) != heartbeatPayloadLen {
		return nil, fmt.Errorf("heartbeat payload: expected %d bytes, got %d", heartbeatPayloadLen, len(payload))
	}
	return &Heartbeat{
		CustomMode:     binary.LittleEndian.Uint32(payload[0:4]),
		Type:           payload[4],
		Autopilot:      payload[5],
		BaseMode:       payload[6],
		SystemStatus:   payload[7],
		MavlinkVersion: payload[8],
	}, nil
}

// EncodeHeartbeat encodes a HEARTBEAT payload.
func EncodeHeartbeat(m *Heartbeat) []byte {
	payload := make([]byte, heartbeatPayloadLen)
	binary.LittleEndian.PutUint32(payload[0:4], m.CustomMode)
	payload[4] = m.Type
	payload[5] = m.Autopilot
	payload[6] = m.BaseMode
	payload[7] = m.SystemStatus
	payload[8] = m.MavlinkVersion
	return payload
}

// DecodeGlobalPositionInt decodes a GLOBAL_POSITION_INT payload.
func DecodeGlobalPositionInt(payload []byte) (*GlobalPositionInt, error) {
	if len(payload) != globalPositionIntPayloadLen {
		return nil, fmt.Errorf("global position payload: expected %d bytes, got %d", globalPositionIntPayloadLen, len(payload))
	}
	return &GlobalPositionInt{
		TimeBootMs:  binary.LittleEndian.Uint32(payload[0:4]),
		Lat:         int32(binary.LittleEndian.Uint32(payload[4:8])),
		Lon:         int32(binary.LittleEndian.Uint32(payload[8:12])),
		Alt:         int32(binary.LittleEndian.Uint32(payload[12:16])),
		RelativeAlt: int32(binary.LittleEndian.Uint32(payload[16:20])),
		Vx:          int16(binary.LittleEndian.Uint16(payload[20:22])),
		Vy:          int16(binary.LittleEndian.Uint16(payload[22:24])),
		Vz:          int16(binary.LittleEndian.Uint16(payload[24:26])),
		Hdg:         binary.LittleEndian.Uint16(payload[26:28]),
	}, nil
}

// EncodeGlobalPositionInt encodes a GLOBAL_POSITION_INT payload.
func EncodeGlobalPositionInt(m *GlobalPositionInt) []byte {
	payload := make([]byte, globalPositionIntPayloadLen)
	binary.LittleEndian.PutUint32(payload[0:4], m.TimeBootMs)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(m.Lat))
	binary.LittleEndian.PutUint32(payload[8:12], uint32(m.Lon))
	binary.LittleEndian.PutUint32(payload[12:16], uint32(m.Alt))
	binary.LittleEndian.PutUint32(payload[16:20], uint32(m.RelativeAlt))
	binary.LittleEndian.PutUint16(payload[20:22], uint16(m.Vx))
	binary.LittleEndian.PutUint16(payload[22:24], uint16(m.Vy))
	binary.LittleEndian.PutUint16(payload[24:26], uint16(m.Vz))
	binary.LittleEndian.PutUint16(payload[26:28], m.Hdg)
	return payload
}
