package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr  = "127.0.0.1:8000"
	defaultTopicPrefix = "groundlink/link"
	defaultClientID    = "groundlink"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Tiles    TilesConfig  `yaml:"tiles"`
	Link     LinkConfig   `yaml:"link"`
	Events   EventsConfig `yaml:"events"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// TilesConfig locates the tile archive and the serving address.
type TilesConfig struct {
	Archive string `yaml:"archive"`
	Listen  string `yaml:"listen"`
}

// LinkConfig configures the telemetry channel and the liveness machinery.
// Zero durations fall back to the monitor defaults; a zero handshakeTimeout
// waits for the first heartbeat indefinitely.
type LinkConfig struct {
	Port             int           `yaml:"port"`
	LivenessTimeout  time.Duration `yaml:"livenessTimeout"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
}

// EventsConfig configures outbound event sinks.
type EventsConfig struct {
	MQTT MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig represents the optional MQTT event sink.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"clientId"`
	TopicPrefix string `yaml:"topicPrefix"`
}

// LoadConfig reads, defaults and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if config.Tiles.Listen == "" {
		config.Tiles.Listen = defaultListenAddr
	}
	if config.Events.MQTT.ClientID == "" {
		config.Events.MQTT.ClientID = defaultClientID
	}
	if config.Events.MQTT.TopicPrefix == "" {
		config.Events.MQTT.TopicPrefix = defaultTopicPrefix
	}

	if err = config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Tiles.Archive == "" {
		return errors.New("tiles.archive is required")
	}
	if c.Link.Port <= 0 || c.Link.Port > 65535 {
		return fmt.Errorf("link.port must be in 1..65535, got %d", c.Link.Port)
	}
	if c.Link.LivenessTimeout < 0 || c.Link.PollInterval < 0 || c.Link.HandshakeTimeout < 0 {
		return errors.New("link durations must not be negative")
	}
	if c.Events.MQTT.Enabled && c.Events.MQTT.Broker == "" {
		return errors.New("events.mqtt.broker is required when the MQTT sink is enabled")
	}
	return nil
}
