package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/manas-aero/groundlink/internal/link"
	"github.com/manas-aero/groundlink/internal/publish"
	"github.com/manas-aero/groundlink/internal/tiles"
)

// Run wires the two subsystems and blocks until ctx is cancelled or one of
// them fails fatally. The tile server and the link monitor run independently
// and never interact; the display layer consumes the monitor's events (here:
// the structured log and the optional MQTT sink).
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := tiles.OpenStore(config.Tiles.Archive)
	if err != nil {
		return fmt.Errorf("failed to open tile archive: %w", err)
	}
	defer store.Close()

	logArchiveInfo(ctx, store, logger)

	server := tiles.NewServer(config.Tiles.Listen, store, tiles.WithServerLogger(logger))

	source, err := link.OpenUDPSource(config.Link.Port)
	if err != nil {
		return fmt.Errorf("failed to open telemetry channel: %w", err)
	}
	defer source.Close()

	monitor := link.NewMonitor(
		fmt.Sprintf("udp:127.0.0.1:%d", config.Link.Port),
		source,
		monitorOptions(&config.Link, logger)...,
	)

	var publisher *publish.MQTTPublisher
	if config.Events.MQTT.Enabled {
		publisher, err = publish.NewMQTTPublisher(
			config.Events.MQTT.Broker,
			config.Events.MQTT.ClientID,
			config.Events.MQTT.TopicPrefix,
			publish.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		defer publisher.Close()
	}

	done := make(chan error, 2)
	go func() {
		done <- server.Run(ctx)
	}()
	go func() {
		done <- monitor.Run(ctx)
	}()

	go consumeEvents(monitor.Events(), publisher, logger)

	var errs []error
	for i := 0; i < cap(done); i++ {
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			cancel() // stop the other subsystem
			logger.Error(err.Error())

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func monitorOptions(config *LinkConfig, logger *slog.Logger) []func(m *link.Monitor) {
	options := []func(m *link.Monitor){link.WithLogger(logger)}

	if config.LivenessTimeout > 0 {
		options = append(options, link.WithLivenessTimeout(config.LivenessTimeout))
	}
	if config.PollInterval > 0 {
		options = append(options, link.WithPollInterval(config.PollInterval))
	}
	if config.HandshakeTimeout > 0 {
		options = append(options, link.WithHandshakeTimeout(config.HandshakeTimeout))
	}

	return options
}

// consumeEvents is the stand-in for the display layer: every event is logged
// and, when configured, mirrored to the MQTT sink. It drains the channel to
// completion so the monitor is never blocked on emission.
func consumeEvents(events <-chan link.Event, publisher *publish.MQTTPublisher, logger *slog.Logger) {
	for ev := range events {
		switch e := ev.(type) {
		case link.LivenessChanged:
			logger.Info("link liveness changed", slog.Bool("alive", e.Alive))

		case link.PositionUpdate:
			logger.Info("position update",
				slog.Float64("lat", e.Fix.Latitude),
				slog.Float64("lon", e.Fix.Longitude),
				slog.Float64("alt", e.Fix.Altitude),
				slog.Time("observedAt", e.Fix.ObservedAt))
		}

		if publisher != nil {
			publisher.Publish(ev)
		}
	}
}

func logArchiveInfo(ctx context.Context, store *tiles.Store, logger *slog.Logger) {
	attrs := []any{slog.String("path", store.Path())}

	if info, err := os.Stat(store.Path()); err == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}

	// Metadata is informational only; archives without the table still serve.
	if meta, err := store.Metadata(ctx); err == nil {
		if name, ok := meta["name"]; ok {
			attrs = append(attrs, slog.String("name", name))
		}
		if format, ok := meta["format"]; ok {
			attrs = append(attrs, slog.String("format", format))
		}
	}

	logger.Info("using tile archive", attrs...)
}
