// Package mavlink implements the minimal slice of MAVLink v1 framing the
// link monitor needs: frame extraction with checksum verification, and typed
// decoding of the heartbeat and global-position messages. Everything else on
// the wire is either surfaced as a raw frame (proof of link traffic) or
// skipped when its checksum cannot be verified.
package mavlink

import "fmt"

// Magic is the MAVLink v1 start-of-frame marker.
const Magic = 0xFE

// frameOverhead is the byte count of a frame beyond its payload:
// magic, length, sequence, system id, component id, message id, two CRC bytes.
const frameOverhead = 8

// Message IDs with a known CRC_EXTRA. Only these frames can be checksum
// verified; heartbeat and global position additionally get typed decoding.
const (
	MsgIDHeartbeat         = 0
	MsgIDSysStatus         = 1
	MsgIDGPSRawInt         = 24
	MsgIDAttitude          = 30
	MsgIDGlobalPositionInt = 33
	MsgIDVFRHUD            = 74
)

// crcExtras maps message id to the CRC_EXTRA byte folded into the checksum.
// An id absent from this table cannot be verified and is dropped by Parse.
var crcExtras = map[uint8]uint8{
	MsgIDHeartbeat:         50,
	MsgIDSysStatus:         124,
	MsgIDGPSRawInt:         24,
	MsgIDAttitude:          39,
	MsgIDGlobalPositionInt: 104,
	MsgIDVFRHUD:            20,
}

// Frame is one verified MAVLink v1 frame.
type Frame struct {
	Sequence    uint8
	SystemID    uint8
	ComponentID uint8
	MsgID       uint8
	Payload     []byte
}

// x25 is the CRC-16/X.25 accumulator used by MAVLink, seeded 0xFFFF.
type x25 uint16

func newX25() x25 { return 0xFFFF }

func (c x25) update(b byte) x25 {
	tmp := b ^ byte(c&0xFF)
	tmp ^= tmp << 4
	return (c >> 8) ^ (x25(tmp) << 8) ^ (x25(tmp) << 3) ^ (x25(tmp) >> 4)
}

func (c x25) updateBytes(p []byte) x25 {
	for _, b := range p {
		c = c.update(b)
	}
	return c
}

// checksum computes the frame checksum over length..payload plus CRC_EXTRA.
func checksum(body []byte, crcExtra uint8) uint16 {
	return uint16(newX25().updateBytes(body).update(crcExtra))
}

// Parse extracts every verifiable frame from a datagram. A datagram may
// carry several frames back to back. Bytes that do not form a verifiable
// frame (bad magic, truncation, unknown CRC_EXTRA, checksum mismatch) are
// skipped without error: on an unreliable channel they carry no meaning.
func Parse(data []byte) []Frame {
	var frames []Frame

	for i := 0; i+frameOverhead <= len(data); {
		if data[i] != Magic {
			i++
			continue
		}

		payloadLen := int(data[i+1])
		end := i + frameOverhead + payloadLen
		if end > len(data) {
			i++
			continue
		}

		msgID := data[i+5]
		crcExtra, ok := crcExtras[msgID]
		if !ok {
			i++
			continue
		}

		body := data[i+1 : end-2]
		crcGot := uint16(data[end-2]) | uint16(data[end-1])<<8
		if crcGot != checksum(body, crcExtra) {
			i++
			continue
		}

		payload := make([]byte, payloadLen)
		copy(payload, data[i+6:end-2])

		frames = append(frames, Frame{
			Sequence:    data[i+2],
			SystemID:    data[i+3],
			ComponentID: data[i+4],
			MsgID:       msgID,
			Payload:     payload,
		})
		i = end
	}

	return frames
}

// Encode builds the wire form of a frame. It fails for message ids without a
// known CRC_EXTRA, since the peer could never verify such a frame.
func Encode(f Frame) ([]byte, error) {
	crcExtra, ok := crcExtras[f.MsgID]
	if !ok {
		return nil, fmt.Errorf("no CRC_EXTRA for message id %d", f.MsgID)
	}
	if len(f.Payload) > 255 {
		return nil, fmt.Errorf("payload too long: %d", len(f.Payload))
	}

	buf := make([]byte, 0, frameOverhead+len(f.Payload))
	buf = append(buf, Magic, uint8(len(f.Payload)), f.Sequence, f.SystemID, f.ComponentID, f.MsgID)
	buf = append(buf, f.Payload...)

	crc := checksum(buf[1:], crcExtra)
	return append(buf, byte(crc&0xFF), byte(crc>>8)), nil
}
