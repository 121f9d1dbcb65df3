package mavlink

import (
	"bytes"
	"testing"
)

func mustEncode(t *testing.T, f Frame) []byte {
	t.Helper()
	data, err := Encode(f)
	if err != nil {
		t.Fatalf("Failed to encode frame: %v", err)
	}
	return data
}

func TestParse_RoundTrip(t *testing.T) {
	hb := Frame{
		Sequence:    1,
		SystemID:    1,
		ComponentID: 1,
		MsgID:       MsgIDHeartbeat,
		Payload:     EncodeHeartbeat(&Heartbeat{Type: 2, Autopilot: 3, MavlinkVersion: 3}),
	}
	pos := Frame{
		Sequence:    2,
		SystemID:    1,
		ComponentID: 1,
		MsgID:       MsgIDGlobalPositionInt,
		Payload:     EncodeGlobalPositionInt(&GlobalPositionInt{Lat: 123456789, Lon: -987654321, RelativeAlt: 1500}),
	}

	// Two frames back to back in one datagram, with junk in front.
	datagram := append([]byte{0x00, 0xFF, 0x13}, mustEncode(t, hb)...)
	datagram = append(datagram, mustEncode(t, pos)...)

	frames := Parse(datagram)
	if len(frames) != 2 {
		t.Fatalf("Parse returned %d frames, want 2", len(frames))
	}

	if frames[0].MsgID != MsgIDHeartbeat || frames[0].Sequence != 1 {
		t.Errorf("First frame = %+v, want heartbeat seq 1", frames[0])
	}
	if !bytes.Equal(frames[0].Payload, hb.Payload) {
		t.Errorf("Heartbeat payload = %v, want %v", frames[0].Payload, hb.Payload)
	}

	if frames[1].MsgID != MsgIDGlobalPositionInt {
		t.Errorf("Second frame msg id = %d, want %d", frames[1].MsgID, MsgIDGlobalPositionInt)
	}

	decoded, err := DecodeGlobalPositionInt(frames[1].Payload)
	if err != nil {
		t.Fatalf("Failed to decode position payload: %v", err)
	}
	if decoded.Lat != 123456789 || decoded.Lon != -987654321 || decoded.RelativeAlt != 1500 {
		t.Errorf("Decoded position = %+v, want lat 123456789 lon -987654321 relAlt 1500", decoded)
	}
}

func TestParse_CorruptChecksum(t *testing.T) {
	data := mustEncode(t, Frame{
		MsgID:   MsgIDHeartbeat,
		Payload: EncodeHeartbeat(&Heartbeat{Type: 2}),
	})
	data[len(data)-1] ^= 0xFF

	if frames := Parse(data); len(frames) != 0 {
		t.Errorf("Parse of corrupt frame returned %d frames, want 0", len(frames))
	}
}

func TestParse_Truncated(t *testing.T) {
	data := mustEncode(t, Frame{
		MsgID:   MsgIDGlobalPositionInt,
		Payload: EncodeGlobalPositionInt(&GlobalPositionInt{}),
	})

	if frames := Parse(data[:len(data)-5]); len(frames) != 0 {
		t.Errorf("Parse of truncated frame returned %d frames, want 0", len(frames))
	}
}

func TestParse_UnknownMessageID(t *testing.T) {
	// Hand-built frame with an id outside the CRC_EXTRA table; it cannot be
	// verified, so it must be skipped.
	data := []byte{Magic, 2, 0, 1, 1, 200, 0xAA, 0xBB, 0x00, 0x00}

	if frames := Parse(data); len(frames) != 0 {
		t.Errorf("Parse of unknown message id returned %d frames, want 0", len(frames))
	}
}

func TestEncode_UnknownMessageID(t *testing.T) {
	if _, err := Encode(Frame{MsgID: 200}); err == nil {
		t.Error("Expected error encoding message without CRC_EXTRA, got nil")
	}
}

func TestParse_Garbage(t *testing.T) {
	garbage := []byte("GET /3/1/5 HTTP/1.1\r\n")
	if frames := Parse(garbage); len(frames) != 0 {
		t.Errorf("Parse of garbage returned %d frames, want 0", len(frames))
	}
}
