package link

import (
	"fmt"
	"net"

	"github.com/manas-aero/groundlink/internal/mavlink"
)

// sourceBuffer bounds how many frames can queue between reads. Telemetry is
// lossy by nature; when the monitor lags, old frames are dropped rather than
// blocking the reader.
const sourceBuffer = 256

// Receiver hands decoded frames to the monitor without blocking. Receive
// reports false when no frame is pending.
type Receiver interface {
	Receive() (frame mavlink.Frame, ok bool)
	Close() error
}

// UDPSource receives telemetry datagrams on a loopback port and unframes
// them into a buffered queue. A failure to bind the port is a fatal
// configuration error surfaced from OpenUDPSource.
type UDPSource struct {
	conn   *net.UDPConn
	frames chan mavlink.Frame
}

// OpenUDPSource binds the local telemetry port and starts reading.
func OpenUDPSource(port int) (*UDPSource, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return nil, fmt.Errorf("binding telemetry port %d: %w", port, err)
	}

	s := UDPSource{
		conn:   conn,
		frames: make(chan mavlink.Frame, sourceBuffer),
	}

	go s.readLoop()

	return &s, nil
}

func (s *UDPSource) readLoop() {
	defer close(s.frames)

	buf := make([]byte, 2048)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			// Close was called, or the socket died; either way the
			// source is done.
			return
		}

		for _, frame := range mavlink.Parse(buf[:n]) {
			select {
			case s.frames <- frame:
			default:
				// consumer lagging, drop the frame
			}
		}
	}
}

// LocalAddr returns the bound address, useful when the port was chosen by
// the kernel.
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Receive returns the next queued frame, or ok=false when none is pending.
func (s *UDPSource) Receive() (mavlink.Frame, bool) {
	select {
	case frame, ok := <-s.frames:
		return frame, ok
	default:
		return mavlink.Frame{}, false
	}
}

// Close stops the reader and releases the socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}
