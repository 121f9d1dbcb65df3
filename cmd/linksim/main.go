// linksim feeds a groundlink instance with synthetic telemetry: heartbeats
// at 1 Hz and position fixes flying a circle around a center point. Useful
// for bench-testing the monitor without an autopilot on the wire.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manas-aero/groundlink/internal/mavlink"
)

type config struct {
	dest      string
	centerLat float64
	centerLon float64
	altMeters float64
	radiusDeg float64
	period    time.Duration
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var c config
	flag.StringVar(&c.dest, "dest", "127.0.0.1:14550", "Telemetry destination address")
	flag.Float64Var(&c.centerLat, "lat", 12.97, "Circle center latitude in degrees")
	flag.Float64Var(&c.centerLon, "lon", 77.59, "Circle center longitude in degrees")
	flag.Float64Var(&c.altMeters, "alt", 50, "Relative altitude in meters")
	flag.Float64Var(&c.radiusDeg, "radius", 0.01, "Circle radius in degrees")
	flag.DurationVar(&c.period, "period", time.Minute, "Time per full circle")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &c, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *config, logger *slog.Logger) error {
	conn, err := net.Dial("udp", c.dest)
	if err != nil {
		return fmt.Errorf("dialing telemetry destination: %w", err)
	}
	defer conn.Close()

	logger.Info("sending synthetic telemetry", slog.String("dest", c.dest))

	heartbeats := time.NewTicker(time.Second)
	defer heartbeats.Stop()
	positions := time.NewTicker(200 * time.Millisecond)
	defer positions.Stop()

	var seq uint8
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-heartbeats.C:
			payload := mavlink.EncodeHeartbeat(&mavlink.Heartbeat{Type: 2, Autopilot: 3, MavlinkVersion: 3})
			if err := send(conn, &seq, mavlink.MsgIDHeartbeat, payload); err != nil {
				return err
			}

		case now := <-positions.C:
			angle := 2 * math.Pi * float64(now.Sub(start)) / float64(c.period)
			lat := c.centerLat + c.radiusDeg*math.Sin(angle)
			lon := c.centerLon + c.radiusDeg*math.Cos(angle)

			payload := mavlink.EncodeGlobalPositionInt(&mavlink.GlobalPositionInt{
				TimeBootMs:  uint32(now.Sub(start) / time.Millisecond),
				Lat:         int32(math.Round(lat * 1e7)),
				Lon:         int32(math.Round(lon * 1e7)),
				RelativeAlt: int32(math.Round(c.altMeters * 1e3)),
			})
			if err := send(conn, &seq, mavlink.MsgIDGlobalPositionInt, payload); err != nil {
				return err
			}
		}
	}
}

func send(conn net.Conn, seq *uint8, msgID uint8, payload []byte) error {
	frame, err := mavlink.Encode(mavlink.Frame{
		Sequence:    *seq,
		SystemID:    1,
		ComponentID: 1,
		MsgID:       msgID,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	*seq++

	if _, err = conn.Write(frame); err != nil {
		return fmt.Errorf("sending frame: %w", err)
	}
	return nil
}
