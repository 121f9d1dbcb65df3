// Package publish forwards link events to external consumers. The in-process
// display layer reads the monitor's channel directly; this package covers
// out-of-process consumers via an MQTT broker.
package publish

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/manas-aero/groundlink/internal/link"
)

const connectTimeout = 10 * time.Second

// livenessMessage is the JSON payload published on <prefix>/liveness.
type livenessMessage struct {
	Alive bool      `json:"alive"`
	At    time.Time `json:"at"`
}

// WithLogger sets the logger for the publisher.
func WithLogger(logger *slog.Logger) func(p *MQTTPublisher) {
	return func(p *MQTTPublisher) {
		p.logger = logger.With(slog.String("component", "publisher"))
	}
}

// MQTTPublisher publishes link events as JSON to an MQTT broker.
type MQTTPublisher struct {
	client      mqtt.Client
	topicPrefix string
	logger      *slog.Logger
}

// NewMQTTPublisher connects to the broker. A connection failure is a fatal
// configuration error; the publisher does not retry at startup.
func NewMQTTPublisher(broker, clientID, topicPrefix string, options ...func(p *MQTTPublisher)) (*MQTTPublisher, error) {
	p := MQTTPublisher{
		topicPrefix: topicPrefix,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&p)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout)

	p.client = mqtt.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker '%s': %w", broker, token.Error())
	}

	p.logger.Info("connected to MQTT broker", slog.String("broker", broker))

	return &p, nil
}

// Publish forwards one event. Publish failures are logged and dropped: the
// broker link is best-effort and must not stall the monitor's consumer.
func (p *MQTTPublisher) Publish(ev link.Event) {
	var topic string
	var body any

	switch e := ev.(type) {
	case link.LivenessChanged:
		topic = p.topicPrefix + "/liveness"
		body = livenessMessage{Alive: e.Alive, At: e.At}

	case link.PositionUpdate:
		topic = p.topicPrefix + "/position"
		body = e.Fix

	default:
		return
	}

	payload, err := json.Marshal(body)
	if err != nil {
		p.logger.Error("marshaling event", slog.String("error", err.Error()))
		return
	}

	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("publish failed",
				slog.String("topic", topic),
				slog.String("error", token.Error().Error()))
		}
	}()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
